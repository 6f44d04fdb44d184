package notification

import (
	"context"

	"github.com/sentra-systems/sentra/internal/logging"
)

// LogChannel writes alert notifications to the structured log. Useful in dev
// and as a last-resort channel when nothing else is configured.
type LogChannel struct {
	log *logging.Logger
}

// NewLogChannel creates a log-based notification channel.
func NewLogChannel(log *logging.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Send(_ context.Context, alert *Alert) error {
	l.log.Info("security alert",
		logging.EventID(alert.EventID),
		logging.Fingerprint(alert.Fingerprint),
		logging.SourceIP(alert.SourceIP),
		logging.AttackType(string(alert.AttackType)),
		logging.Decision(string(alert.Decision)),
		logging.RiskScore(alert.RiskScore),
		"automated_response", alert.Response,
		"occurrence_count", alert.Occurrence,
	)
	return nil
}
