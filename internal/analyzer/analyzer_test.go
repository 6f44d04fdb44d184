package analyzer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
)

const captureHeader = "timestamp,source_ip,dest_ip,src_port,dst_port,protocol,length,syn"

func captureRow(ts float64, src, dst string, dstPort int, syn bool) string {
	s := "0"
	if syn {
		s = "1"
	}
	return fmt.Sprintf("%f,%s,%s,40000,%d,tcp,60,%s", ts, src, dst, dstPort, s)
}

type collector struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (c *collector) emit(e models.SecurityEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) byDetector(name string) []models.SecurityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.SecurityEvent
	for _, e := range c.events {
		if e.RawAttributes["detector"] == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestAnalyzer(t *testing.T, cfg Config, sink *collector) *Analyzer {
	t.Helper()
	return New(cfg, normalizer.Default(), sink.emit, logging.Default())
}

func runCapture(t *testing.T, a *Analyzer, rows []string) Summary {
	t.Helper()
	input := captureHeader + "\n" + strings.Join(rows, "\n")
	source, err := NewCSVSource(strings.NewReader(input))
	require.NoError(t, err)

	summary, err := a.Run(context.Background(), source)
	require.NoError(t, err)
	return summary
}

func TestPortScanDetection(t *testing.T) {
	sink := &collector{}
	a := newTestAnalyzer(t, Config{Workers: 2, PortScanPorts: 10}, sink)

	var rows []string
	base := float64(time.Now().Unix())
	for port := 1000; port < 1030; port++ {
		rows = append(rows, captureRow(base+float64(port-1000)*0.01, "203.0.113.7", "192.0.2.1", port, true))
	}

	summary := runCapture(t, a, rows)
	assert.Equal(t, int64(30), summary.Packets)
	assert.Zero(t, summary.Skipped)

	scans := sink.byDetector("port_scan")
	require.NotEmpty(t, scans)
	e := scans[0]
	assert.Equal(t, "203.0.113.7", e.SourceIP)
	assert.GreaterOrEqual(t, e.Feature(models.FeatDistinctPorts), 10.0)
	assert.Contains(t, e.RawAttributes["rationale"], "distinct destination ports")
}

func TestVolumetricDetection(t *testing.T) {
	sink := &collector{}
	a := newTestAnalyzer(t, Config{Workers: 1, PacketRateLimit: 100, SynRateLimit: 50}, sink)

	// 200 SYNs in one second toward a single destination port.
	var rows []string
	base := float64(1767225600)
	for i := 0; i < 200; i++ {
		rows = append(rows, captureRow(base+float64(i)*0.005, "198.51.100.3", "192.0.2.1", 443, true))
	}

	runCapture(t, a, rows)

	floods := sink.byDetector("volumetric")
	require.NotEmpty(t, floods)
	assert.Contains(t, floods[0].RawAttributes["rationale"], "SYN rate")
	assert.Equal(t, "critical", floods[0].RawAttributes["severity"])
}

func TestExposedServiceDetection(t *testing.T) {
	sink := &collector{}
	a := newTestAnalyzer(t, Config{Workers: 1}, sink)

	rows := []string{captureRow(1767225600, "10.0.0.5", "192.0.2.9", 23, false)}
	runCapture(t, a, rows)

	exposed := sink.byDetector("exposed_service")
	require.Len(t, exposed, 1)
	assert.Contains(t, exposed[0].RawAttributes["rationale"], "telnet")
	assert.Equal(t, "true", exposed[0].RawAttributes["exposed_service"])
	assert.Equal(t, 23, exposed[0].Port)
}

func TestFindingFiresOncePerFlow(t *testing.T) {
	sink := &collector{}
	a := newTestAnalyzer(t, Config{Workers: 1}, sink)

	var rows []string
	for i := 0; i < 50; i++ {
		rows = append(rows, captureRow(1767225600+float64(i), "10.0.0.5", "192.0.2.9", 3389, false))
	}
	runCapture(t, a, rows)

	assert.Len(t, sink.byDetector("exposed_service"), 1)
}

func TestMalformedPacketsSkippedNotFatal(t *testing.T) {
	sink := &collector{}
	a := newTestAnalyzer(t, Config{Workers: 2}, sink)

	// 10% malformed: 90 valid rows toward a risky port, 10 junk rows.
	var rows []string
	for i := 0; i < 90; i++ {
		rows = append(rows, captureRow(1767225600+float64(i), "10.0.0.5", "192.0.2.9", 6379, false))
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, "garbage,row")
	}

	summary := runCapture(t, a, rows)
	assert.Equal(t, int64(90), summary.Packets)
	assert.Equal(t, 10, summary.Skipped)
	// Valid flows were still analyzed.
	assert.NotEmpty(t, sink.byDetector("exposed_service"))
}

func TestShardAssignmentStable(t *testing.T) {
	a := newTestAnalyzer(t, Config{Workers: 4}, &collector{})

	for _, ip := range []string{"10.0.0.1", "203.0.113.77", "2001:db8::1"} {
		first := a.shardFor(ip)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, a.shardFor(ip), "one source must always land on one worker")
		}
	}
}

func TestJSONLSource(t *testing.T) {
	input := strings.Join([]string{
		`{"timestamp": 1767225600.25, "source_ip": "10.0.0.1", "dest_ip": "10.0.0.2", "dst_port": 445, "protocol": "tcp", "length": 120, "syn": true}`,
		`not json at all`,
		``,
		`{"frame.time_epoch": 1767225601, "ip.src": "10.0.0.3", "ip.dst": "10.0.0.4", "tcp.dstport": 80, "frame.len": 60}`,
	}, "\n")

	source := NewJSONLSource(strings.NewReader(input))
	ctx := context.Background()

	first, err := source.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", first.SourceIP)
	assert.Equal(t, 445, first.DstPort)
	assert.True(t, first.SYN)

	second, err := source.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", second.SourceIP)
	assert.Equal(t, 80, second.DstPort)

	_, err = source.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, source.Skipped())
}

func TestCSVSourceTsharkAliases(t *testing.T) {
	input := strings.Join([]string{
		"frame.time_epoch,ip.src,ip.dst,tcp.srcport,tcp.dstport,_ws.col.Protocol,frame.len,tcp.flags.syn",
		"1767225600.5,172.16.0.1,172.16.0.2,51000,22,TCP,74,1",
	}, "\n")

	source, err := NewCSVSource(strings.NewReader(input))
	require.NoError(t, err)

	pkt, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.1", pkt.SourceIP)
	assert.Equal(t, 22, pkt.DstPort)
	assert.Equal(t, "tcp", pkt.Protocol)
	assert.True(t, pkt.SYN)
}
