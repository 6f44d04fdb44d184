package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/sentra-systems/sentra/internal/models"
)

const defaultIndexPrefix = "sentra-events"

// EventDocument is the indexed shape of one scored event and its
// decision. Flattened for search: feature slots become named fields.
type EventDocument struct {
	EventID           string             `json:"event_id"`
	Timestamp         time.Time          `json:"@timestamp"`
	SourceIP          string             `json:"source_ip"`
	DestIP            string             `json:"dest_ip,omitempty"`
	Port              int                `json:"port"`
	Protocol          string             `json:"protocol"`
	Features          map[string]float64 `json:"features"`
	RiskScore         float64            `json:"risk_score"`
	AttackType        string             `json:"attack_type"`
	Confidence        float64            `json:"confidence"`
	AccessDecision    string             `json:"access_decision"`
	AutomatedResponse string             `json:"automated_response"`
}

// featureNames maps feature slots to document field names, in slot order.
var featureNames = [models.FeatureVectorLen]string{
	"duration",
	"packet_count",
	"byte_count",
	"syn_count",
	"distinct_ports",
	"failed_logins",
	"payload_entropy",
	"rate_pps",
}

// DocumentFor flattens a scored event and its decision into an indexable
// document.
func DocumentFor(scored models.ScoredEvent, dec models.Decision) EventDocument {
	features := make(map[string]float64, models.FeatureVectorLen)
	for i, name := range featureNames {
		features[name] = scored.Feature(i)
	}
	return EventDocument{
		EventID:           scored.ID,
		Timestamp:         scored.Timestamp.UTC(),
		SourceIP:          scored.SourceIP,
		DestIP:            scored.DestIP,
		Port:              scored.Port,
		Protocol:          scored.Protocol,
		Features:          features,
		RiskScore:         scored.RiskScore,
		AttackType:        string(scored.AttackType),
		Confidence:        scored.Confidence,
		AccessDecision:    string(dec.AccessDecision),
		AutomatedResponse: dec.AutomatedResponse,
	}
}

// IndexStats summarizes one bulk indexing pass.
type IndexStats struct {
	Indexed int
	Failed  int
	Errors  []string
}

// EventSink bulk-indexes event documents into daily indices.
type EventSink struct {
	client *opensearch.Client
	prefix string
}

// NewEventSink wraps an OpenSearch client. An empty prefix uses the
// default.
func NewEventSink(client *opensearch.Client, prefix string) *EventSink {
	if prefix == "" {
		prefix = defaultIndexPrefix
	}
	return &EventSink{client: client, prefix: prefix}
}

// IndexName returns the daily index for the given event time, e.g.
// sentra-events-2026.03.14.
func (s *EventSink) IndexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", s.prefix, t.UTC().Format("2006.01.02"))
}

// IndexBatch bulk-indexes the documents, grouping them by daily index.
func (s *EventSink) IndexBatch(ctx context.Context, docs []EventDocument) (IndexStats, error) {
	stats := IndexStats{}
	if len(docs) == 0 {
		return stats, nil
	}

	byIndex := make(map[string][]EventDocument)
	for _, doc := range docs {
		idx := s.IndexName(doc.Timestamp)
		byIndex[idx] = append(byIndex[idx], doc)
	}

	var mu sync.Mutex
	for idx, group := range byIndex {
		bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
			Client: s.client,
			Index:  idx,
		})
		if err != nil {
			return stats, fmt.Errorf("create bulk indexer: %w", err)
		}

		for _, doc := range group {
			data, err := json.Marshal(doc)
			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("marshal event %s: %v", doc.EventID, err))
				continue
			}

			err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
				Action:     "index",
				DocumentID: doc.EventID,
				Body:       bytes.NewReader(data),
				OnSuccess: func(context.Context, opensearchutil.BulkIndexerItem, opensearchutil.BulkIndexerResponseItem) {
					mu.Lock()
					stats.Indexed++
					mu.Unlock()
				},
				OnFailure: func(_ context.Context, _ opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
					mu.Lock()
					defer mu.Unlock()
					stats.Failed++
					if err != nil {
						stats.Errors = append(stats.Errors, err.Error())
					} else {
						stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason))
					}
				},
			})
			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("add to bulk indexer: %v", err))
			}
		}

		if err := bi.Close(ctx); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("bulk indexer close: %v", err))
		}
	}

	return stats, nil
}
