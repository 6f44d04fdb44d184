package analyzer

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// FlowKey identifies one aggregated flow.
type FlowKey struct {
	SourceIP string
	DestIP   string
	DstPort  int
	Protocol string
}

// Flow aggregates packet statistics for one key within the sliding window.
// Owned exclusively by the shard worker its source hashes to.
type Flow struct {
	Key         FlowKey
	PacketCount int64
	ByteCount   int64
	SynCount    int64
	FirstSeen   time.Time
	LastSeen    time.Time

	// fired remembers which detectors already produced a finding for this
	// flow so a long-lived scan does not refire on every packet.
	fired map[string]bool
}

// Duration is the observed flow lifetime in seconds, never below one packet
// interval to keep rate math finite.
func (f *Flow) Duration() float64 {
	d := f.LastSeen.Sub(f.FirstSeen).Seconds()
	if d < 0.001 {
		return 0.001
	}
	return d
}

// PacketRate is packets per second over the flow lifetime.
func (f *Flow) PacketRate() float64 {
	return float64(f.PacketCount) / f.Duration()
}

// SynRate is SYN packets per second over the flow lifetime.
func (f *Flow) SynRate() float64 {
	return float64(f.SynCount) / f.Duration()
}

// sourceState aggregates per-source counters the port-scan detector needs.
// Lives next to the flow table on the same shard, so it sees every flow from
// its source.
type sourceState struct {
	DistinctPorts map[int]struct{}
	WindowStart   time.Time
}

// flowTable holds one shard's flows and per-source state, both evicted after
// the idle window.
type flowTable struct {
	flows   *lru.LRU[FlowKey, *Flow]
	sources *lru.LRU[string, *sourceState]
	idle    time.Duration
}

func newFlowTable(maxFlows int, idle time.Duration) *flowTable {
	return &flowTable{
		flows:   lru.NewLRU[FlowKey, *Flow](maxFlows, nil, idle),
		sources: lru.NewLRU[string, *sourceState](maxFlows, nil, idle),
		idle:    idle,
	}
}

// update folds one packet into its flow and source state, returning both.
func (t *flowTable) update(pkt PacketRecord) (*Flow, *sourceState) {
	key := FlowKey{
		SourceIP: pkt.SourceIP,
		DestIP:   pkt.DestIP,
		DstPort:  pkt.DstPort,
		Protocol: pkt.Protocol,
	}

	flow, ok := t.flows.Get(key)
	if !ok {
		flow = &Flow{Key: key, FirstSeen: pkt.Timestamp, fired: make(map[string]bool)}
		t.flows.Add(key, flow)
	}
	flow.PacketCount++
	flow.ByteCount += int64(pkt.Length)
	if pkt.SYN {
		flow.SynCount++
	}
	if pkt.Timestamp.After(flow.LastSeen) {
		flow.LastSeen = pkt.Timestamp
	}

	src, ok := t.sources.Get(pkt.SourceIP)
	if !ok || pkt.Timestamp.Sub(src.WindowStart) > t.idle {
		src = &sourceState{DistinctPorts: make(map[int]struct{}), WindowStart: pkt.Timestamp}
		t.sources.Add(pkt.SourceIP, src)
	}
	src.DistinctPorts[pkt.DstPort] = struct{}{}

	return flow, src
}
