package analyzer

import (
	"context"
	"hash/fnv"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/metrics"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
)

// EmitFunc receives each SecurityEvent derived from a detector finding.
type EmitFunc func(models.SecurityEvent)

// Config tunes the analyzer.
type Config struct {
	Workers          int
	FlowIdleTimeout  time.Duration
	MaxFlowsPerShard int
	PortScanPorts    int
	PacketRateLimit  float64
	SynRateLimit     float64
}

// Summary reports what one capture run saw.
type Summary struct {
	Packets  int64 `json:"packets"`
	Skipped  int   `json:"skipped"`
	Findings int64 `json:"findings"`
}

// Analyzer shards packets across a fixed worker set by source address, so
// every flow and all of one source's state stay on a single worker. Flows
// idle past the window are evicted by the shard's expirable table.
type Analyzer struct {
	cfg       Config
	detectors []Detector
	registry  *normalizer.Registry
	emit      EmitFunc
	log       *logging.Logger

	findings atomic.Int64
}

// New constructs an analyzer with the standard detector set.
func New(cfg Config, registry *normalizer.Registry, emit EmitFunc, log *logging.Logger) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.FlowIdleTimeout <= 0 {
		cfg.FlowIdleTimeout = 60 * time.Second
	}
	if cfg.MaxFlowsPerShard <= 0 {
		cfg.MaxFlowsPerShard = 4096
	}
	if cfg.PortScanPorts <= 0 {
		cfg.PortScanPorts = 20
	}

	return &Analyzer{
		cfg: cfg,
		detectors: []Detector{
			PortScanDetector{DistinctPorts: cfg.PortScanPorts},
			VolumetricDetector{PacketRateLimit: cfg.PacketRateLimit, SynRateLimit: cfg.SynRateLimit},
			ExposedServiceDetector{},
		},
		registry: registry,
		emit:     emit,
		log:      log.With(logging.Component("analyzer")),
	}
}

// Run consumes the source until io.EOF or context cancellation. Malformed
// packets never abort the run; they are counted in the summary.
func (a *Analyzer) Run(ctx context.Context, source PacketSource) (Summary, error) {
	shards := make([]chan PacketRecord, a.cfg.Workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan PacketRecord, 256)
		wg.Add(1)
		go func(in <-chan PacketRecord) {
			defer wg.Done()
			a.runShard(in)
		}(shards[i])
	}

	var packets int64
	var readErr error
	for {
		pkt, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Context cancellation or an unrecoverable reader failure.
			readErr = err
			break
		}
		packets++
		metrics.PacketsProcessed.Inc()
		shards[a.shardFor(pkt.SourceIP)] <- pkt
	}

	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()

	summary := Summary{
		Packets:  packets,
		Skipped:  source.Skipped(),
		Findings: a.findings.Load(),
	}
	metrics.PacketsSkipped.Add(float64(summary.Skipped))
	a.log.Info("capture run complete",
		"packets", summary.Packets,
		"skipped", summary.Skipped,
		"findings", summary.Findings)

	if readErr != nil && readErr != context.Canceled {
		return summary, readErr
	}
	return summary, nil
}

func (a *Analyzer) shardFor(sourceIP string) int {
	h := fnv.New32a()
	h.Write([]byte(sourceIP))
	return int(h.Sum32() % uint32(a.cfg.Workers))
}

// runShard owns one flow table; no other goroutine touches it.
func (a *Analyzer) runShard(in <-chan PacketRecord) {
	table := newFlowTable(a.cfg.MaxFlowsPerShard, a.cfg.FlowIdleTimeout)

	for pkt := range in {
		flow, src := table.update(pkt)

		for _, det := range a.detectors {
			if flow.fired[det.Name()] {
				continue
			}
			finding := det.Check(flow, src)
			if finding == nil {
				continue
			}
			flow.fired[det.Name()] = true
			a.findings.Add(1)
			metrics.DetectorFindings.WithLabelValues(det.Name()).Inc()
			a.emitFinding(pkt, flow, src, finding)
		}
	}
}

func (a *Analyzer) emitFinding(pkt PacketRecord, flow *Flow, src *sourceState, finding *Finding) {
	features := map[string]float64{
		"duration":       flow.Duration(),
		"packet_count":   float64(flow.PacketCount),
		"byte_count":     float64(flow.ByteCount),
		"syn_count":      float64(flow.SynCount),
		"distinct_ports": float64(len(src.DistinctPorts)),
		"rate_pps":       flow.PacketRate(),
	}
	attrs := map[string]string{
		"detector":  finding.Detector,
		"severity":  finding.Severity,
		"rationale": finding.Rationale,
	}
	if finding.ExposedService {
		attrs["exposed_service"] = "true"
	}

	rec := normalizer.CaptureRecord(
		pkt.Timestamp,
		flow.Key.SourceIP,
		flow.Key.DestIP,
		flow.Key.Protocol,
		flow.Key.DstPort,
		features,
		attrs,
	)

	event, err := a.registry.Normalize(rec)
	if err != nil {
		a.log.Warn("dropping unnormalizable finding", logging.Error(err))
		return
	}

	a.log.Debug("detector finding",
		"detector", finding.Detector,
		logging.SourceIP(flow.Key.SourceIP),
		"rationale", finding.Rationale)

	a.emit(event)
}
