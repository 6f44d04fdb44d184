package normalizer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sentra-systems/sentra/internal/models"
)

// featureColumns maps dataset column names onto canonical feature vector
// positions.
var featureColumns = map[string]int{
	"duration":        models.FeatDuration,
	"packet_count":    models.FeatPacketCount,
	"byte_count":      models.FeatByteCount,
	"syn_count":       models.FeatSynCount,
	"distinct_ports":  models.FeatDistinctPorts,
	"failed_logins":   models.FeatFailedLogins,
	"payload_entropy": models.FeatPayloadEntropy,
	"rate_pps":        models.FeatRatePPS,
}

// coreColumns are consumed into typed event fields rather than raw
// attributes.
var coreColumns = map[string]bool{
	"timestamp": true,
	"source_ip": true,
	"dest_ip":   true,
	"protocol":  true,
	"port":      true,
}

// DatasetNormalizer converts historical dataset rows (CSV columns keyed by
// header name) into SecurityEvents. Unknown columns, including an optional
// ground_truth_label, are preserved in RawAttributes.
type DatasetNormalizer struct{}

// Supports reports whether this normalizer handles the record source.
func (DatasetNormalizer) Supports(source string) bool {
	return source == SourceDataset || source == SourceLive
}

// Normalize maps one dataset row into a SecurityEvent. The event ID is
// assigned here, at ingestion.
func (DatasetNormalizer) Normalize(rec Record) (models.SecurityEvent, error) {
	srcIP, ok := rec.Fields["source_ip"]
	if !ok || srcIP == "" {
		return models.SecurityEvent{}, fmt.Errorf("dataset row missing source_ip")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.SecurityEvent{}, fmt.Errorf("generate event id: %w", err)
	}

	event := models.SecurityEvent{
		ID:            id.String(),
		SourceIP:      srcIP,
		DestIP:        rec.Fields["dest_ip"],
		Protocol:      rec.Fields["protocol"],
		FeatureVector: make([]float64, models.FeatureVectorLen),
	}

	event.Timestamp = parseTimestamp(rec.Fields["timestamp"])

	if raw, ok := rec.Fields["port"]; ok && raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return models.SecurityEvent{}, fmt.Errorf("invalid port %q: %w", raw, err)
		}
		event.Port = port
	}

	for name, value := range rec.Fields {
		if coreColumns[name] {
			continue
		}
		if idx, ok := featureColumns[name]; ok {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return models.SecurityEvent{}, fmt.Errorf("invalid feature %s=%q: %w", name, value, err)
			}
			event.FeatureVector[idx] = f
			continue
		}
		if event.RawAttributes == nil {
			event.RawAttributes = make(map[string]string)
		}
		event.RawAttributes[name] = value
	}

	return event, nil
}

// parseTimestamp accepts RFC3339 or unix seconds (possibly fractional);
// anything else falls back to the current time so one odd row does not sink
// a whole dataset.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Unix(int64(secs), int64((secs-float64(int64(secs)))*1e9)).UTC()
	}
	return time.Now().UTC()
}
