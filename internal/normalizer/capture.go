package normalizer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sentra-systems/sentra/internal/models"
)

// CaptureNormalizer converts flow-aggregate records emitted by the traffic
// analyzer into SecurityEvents. The analyzer derives the feature values from
// flow counters; this normalizer only maps them into the canonical layout.
type CaptureNormalizer struct{}

// Supports reports whether this normalizer handles the record source.
func (CaptureNormalizer) Supports(source string) bool {
	return source == SourceCapture
}

// Normalize maps one flow-aggregate record into a SecurityEvent.
func (CaptureNormalizer) Normalize(rec Record) (models.SecurityEvent, error) {
	srcIP := rec.Fields["source_ip"]
	if srcIP == "" {
		return models.SecurityEvent{}, fmt.Errorf("capture record missing source_ip")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.SecurityEvent{}, fmt.Errorf("generate event id: %w", err)
	}

	event := models.SecurityEvent{
		ID:            id.String(),
		Timestamp:     parseTimestamp(rec.Fields["timestamp"]),
		SourceIP:      srcIP,
		DestIP:        rec.Fields["dest_ip"],
		Protocol:      rec.Fields["protocol"],
		FeatureVector: make([]float64, models.FeatureVectorLen),
	}

	if raw := rec.Fields["port"]; raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			event.Port = port
		}
	}

	for name, idx := range featureColumns {
		raw, ok := rec.Fields[name]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.SecurityEvent{}, fmt.Errorf("invalid capture feature %s=%q: %w", name, raw, err)
		}
		event.FeatureVector[idx] = f
	}

	// Detector context (name, severity, rationale) rides along for the
	// dispatcher's alert text.
	for _, key := range []string{"detector", "severity", "rationale", "exposed_service"} {
		if v := rec.Fields[key]; v != "" {
			if event.RawAttributes == nil {
				event.RawAttributes = make(map[string]string)
			}
			event.RawAttributes[key] = v
		}
	}

	return event, nil
}

// CaptureRecord builds a capture-source record from flow aggregates. Helper
// for the analyzer so field naming stays in one place.
func CaptureRecord(ts time.Time, srcIP, dstIP, protocol string, port int, features map[string]float64, attrs map[string]string) Record {
	fields := map[string]string{
		"timestamp": ts.UTC().Format(time.RFC3339),
		"source_ip": srcIP,
		"dest_ip":   dstIP,
		"protocol":  protocol,
		"port":      strconv.Itoa(port),
	}
	for name, v := range features {
		fields[name] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for name, v := range attrs {
		fields[name] = v
	}
	return Record{Source: SourceCapture, Fields: fields}
}
