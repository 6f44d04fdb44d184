package analyzer

import "fmt"

// Finding is one detector verdict for a flow update.
type Finding struct {
	Detector  string
	Severity  string
	Rationale string
	// ExposedService marks findings whose risk comes from the destination
	// service itself rather than the traffic pattern.
	ExposedService bool
}

// Detector is one independent, composable check. Check runs per flow update
// and returns nil or exactly one finding.
type Detector interface {
	Name() string
	Check(flow *Flow, src *sourceState) *Finding
}

// PortScanDetector fires when one source touches too many distinct
// destination ports within the sliding window.
type PortScanDetector struct {
	DistinctPorts int
}

func (d PortScanDetector) Name() string { return "port_scan" }

func (d PortScanDetector) Check(flow *Flow, src *sourceState) *Finding {
	if len(src.DistinctPorts) < d.DistinctPorts {
		return nil
	}
	return &Finding{
		Detector: d.Name(),
		Severity: "high",
		Rationale: fmt.Sprintf("%s touched %d distinct destination ports within the window",
			flow.Key.SourceIP, len(src.DistinctPorts)),
	}
}

// VolumetricDetector fires on packet or SYN rates toward one destination
// exceeding the configured limits.
type VolumetricDetector struct {
	PacketRateLimit float64
	SynRateLimit    float64
}

func (d VolumetricDetector) Name() string { return "volumetric" }

func (d VolumetricDetector) Check(flow *Flow, _ *sourceState) *Finding {
	// Rates over a single packet are meaningless; wait for a few samples.
	if flow.PacketCount < 10 {
		return nil
	}

	if rate := flow.SynRate(); d.SynRateLimit > 0 && rate >= d.SynRateLimit {
		return &Finding{
			Detector: d.Name(),
			Severity: "critical",
			Rationale: fmt.Sprintf("SYN rate %.0f/s toward %s:%d exceeds limit %.0f/s",
				rate, flow.Key.DestIP, flow.Key.DstPort, d.SynRateLimit),
		}
	}
	if rate := flow.PacketRate(); d.PacketRateLimit > 0 && rate >= d.PacketRateLimit {
		return &Finding{
			Detector: d.Name(),
			Severity: "critical",
			Rationale: fmt.Sprintf("packet rate %.0f/s toward %s:%d exceeds limit %.0f/s",
				rate, flow.Key.DestIP, flow.Key.DstPort, d.PacketRateLimit),
		}
	}
	return nil
}

// riskyPorts is the known plaintext/admin service set for the
// exposed-service detector.
var riskyPorts = map[int]string{
	21:   "ftp",
	23:   "telnet",
	69:   "tftp",
	110:  "pop3",
	143:  "imap",
	445:  "smb",
	512:  "rexec",
	1433: "mssql",
	3306: "mysql",
	3389: "rdp",
	5900: "vnc",
	6379: "redis",
	9200: "opensearch",
}

// ExposedServiceDetector fires once per flow when the destination port is a
// known-risky plaintext or admin protocol observed reachable.
type ExposedServiceDetector struct{}

func (d ExposedServiceDetector) Name() string { return "exposed_service" }

func (d ExposedServiceDetector) Check(flow *Flow, _ *sourceState) *Finding {
	service, ok := riskyPorts[flow.Key.DstPort]
	if !ok {
		return nil
	}
	return &Finding{
		Detector: d.Name(),
		Severity: "medium",
		Rationale: fmt.Sprintf("reachable %s service on %s:%d",
			service, flow.Key.DestIP, flow.Key.DstPort),
		ExposedService: true,
	}
}
