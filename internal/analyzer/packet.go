// Package analyzer consumes packet-capture streams, aggregates flows, and
// applies signature/heuristic detectors. Findings are converted into
// SecurityEvents and handed to the scoring pipeline; the analyzer itself
// never assigns risk scores.
package analyzer

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// PacketRecord is one parsed packet from a capture source.
type PacketRecord struct {
	Timestamp time.Time
	SourceIP  string
	DestIP    string
	SrcPort   int
	DstPort   int
	Protocol  string
	Length    int
	SYN       bool
}

// PacketSource yields packets until io.EOF. Implementations skip and count
// malformed input instead of failing the stream.
type PacketSource interface {
	Next(ctx context.Context) (PacketRecord, error)
	Skipped() int
}

// Column aliases so tshark field exports work without renaming.
var packetColumnAliases = map[string]string{
	"frame.time_epoch": "timestamp",
	"ip.src":           "source_ip",
	"ip.dst":           "dest_ip",
	"tcp.srcport":      "src_port",
	"udp.srcport":      "src_port",
	"tcp.dstport":      "dst_port",
	"udp.dstport":      "dst_port",
	"frame.len":        "length",
	"tcp.flags.syn":    "syn",
	"_ws.col.protocol": "protocol",
}

// CSVSource reads packets from a CSV capture export (tshark -T fields or the
// simple column names).
type CSVSource struct {
	reader  *csv.Reader
	header  []string
	skipped int
}

// NewCSVSource wraps r, consuming the header row immediately.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := packetColumnAliases[key]; ok {
			key = alias
		}
		header[i] = key
	}

	return &CSVSource{reader: cr, header: header}, nil
}

// Next returns the next parseable packet or io.EOF.
func (s *CSVSource) Next(ctx context.Context) (PacketRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return PacketRecord{}, err
		}

		row, err := s.reader.Read()
		if err == io.EOF {
			return PacketRecord{}, io.EOF
		}
		if err != nil || len(row) != len(s.header) {
			s.skipped++
			continue
		}

		fields := make(map[string]string, len(s.header))
		for i, name := range s.header {
			fields[name] = row[i]
		}

		pkt, err := packetFromFields(fields)
		if err != nil {
			s.skipped++
			continue
		}
		return pkt, nil
	}
}

// Skipped reports how many malformed rows were dropped so far.
func (s *CSVSource) Skipped() int {
	return s.skipped
}

// JSONLSource reads packets from newline-delimited JSON objects using the
// same field names as the CSV form.
type JSONLSource struct {
	scanner *bufio.Scanner
	skipped int
}

// NewJSONLSource wraps r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLSource{scanner: sc}
}

// Next returns the next parseable packet or io.EOF.
func (s *JSONLSource) Next(ctx context.Context) (PacketRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return PacketRecord{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return PacketRecord{}, err
			}
			return PacketRecord{}, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			s.skipped++
			continue
		}

		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			key := strings.ToLower(k)
			if alias, ok := packetColumnAliases[key]; ok {
				key = alias
			}
			fields[key] = fmt.Sprint(v)
		}

		pkt, err := packetFromFields(fields)
		if err != nil {
			s.skipped++
			continue
		}
		return pkt, nil
	}
}

// Skipped reports how many malformed lines were dropped so far.
func (s *JSONLSource) Skipped() int {
	return s.skipped
}

func packetFromFields(fields map[string]string) (PacketRecord, error) {
	src := fields["source_ip"]
	dst := fields["dest_ip"]
	if src == "" || dst == "" {
		return PacketRecord{}, fmt.Errorf("packet missing addresses")
	}

	ts, err := parseEpoch(fields["timestamp"])
	if err != nil {
		return PacketRecord{}, err
	}

	pkt := PacketRecord{
		Timestamp: ts,
		SourceIP:  src,
		DestIP:    dst,
		Protocol:  strings.ToLower(fields["protocol"]),
	}
	if pkt.Protocol == "" {
		pkt.Protocol = "tcp"
	}

	if raw := fields["src_port"]; raw != "" {
		if pkt.SrcPort, err = strconv.Atoi(raw); err != nil {
			return PacketRecord{}, fmt.Errorf("invalid src_port %q", raw)
		}
	}
	if raw := fields["dst_port"]; raw != "" {
		if pkt.DstPort, err = strconv.Atoi(raw); err != nil {
			return PacketRecord{}, fmt.Errorf("invalid dst_port %q", raw)
		}
	}
	if raw := fields["length"]; raw != "" {
		if pkt.Length, err = strconv.Atoi(raw); err != nil {
			return PacketRecord{}, fmt.Errorf("invalid length %q", raw)
		}
	}

	switch strings.ToLower(fields["syn"]) {
	case "1", "true", "yes":
		pkt.SYN = true
	}

	return pkt, nil
}

func parseEpoch(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("packet missing timestamp")
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return time.Unix(int64(secs), int64((secs-float64(int64(secs)))*1e9)).UTC(), nil
}
