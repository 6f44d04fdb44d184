package messaging

import (
	"strings"
	"testing"
)

func TestSubjectConstants_FollowNamingConvention(t *testing.T) {
	subjects := []string{
		SubjectEventsRaw,
		SubjectDecisionsCreated,
		SubjectAlertsDispatched,
	}

	for _, subject := range subjects {
		if !strings.HasPrefix(subject, "sentra.") {
			t.Errorf("subject %q does not live in the sentra domain", subject)
		}
		if parts := strings.Split(subject, "."); len(parts) != 3 {
			t.Errorf("subject %q does not follow {domain}.{action}.{resource}", subject)
		}
	}
}
