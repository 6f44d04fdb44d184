package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/models"
)

var defaultThresholds = config.Thresholds{
	AlertThreshold: 70,
	BlockThreshold: 90,
	AutoBlock:      true,
}

func scored(risk float64, attack models.AttackType) models.ScoredEvent {
	return models.ScoredEvent{
		SecurityEvent: models.SecurityEvent{ID: "evt-1", SourceIP: "192.0.2.10"},
		RiskScore:     risk,
		AttackType:    attack,
	}
}

func TestDecidePolicy(t *testing.T) {
	tests := []struct {
		name string
		risk float64
		want models.AccessDecision
	}{
		{"below alert allows", 69.9, models.AccessAllow},
		{"at alert restricts", 70, models.AccessRestrict},
		{"between restricts", 80, models.AccessRestrict},
		{"at block blocks", 90, models.AccessBlock},
		{"above block blocks", 95, models.AccessBlock},
		{"zero allows", 0, models.AccessAllow},
		{"max blocks", 100, models.AccessBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(scored(tt.risk, models.AttackUnknown), defaultThresholds)
			assert.Equal(t, tt.want, d.AccessDecision)
		})
	}
}

func TestDecideAutoBlockDisabled(t *testing.T) {
	cfg := defaultThresholds
	cfg.AutoBlock = false

	d := Decide(scored(95, models.AttackBruteForce), cfg)
	assert.Equal(t, models.AccessRestrict, d.AccessDecision)
	assert.Contains(t, d.AutomatedResponse, "would-block (auto-block disabled)")
	// The enforcement action is still recorded so analysts see what would
	// have happened.
	assert.Contains(t, d.AutomatedResponse, "terminate session")
}

func TestDecideResponsesParameterizedByAttackType(t *testing.T) {
	tests := []struct {
		attack models.AttackType
		want   string
	}{
		{models.AttackBruteForce, "terminate session"},
		{models.AttackRansomware, "isolate endpoint"},
		{models.AttackSQLInjection, "WAF"},
		{models.AttackUnknown, "isolate source"},
	}

	for _, tt := range tests {
		d := Decide(scored(95, tt.attack), defaultThresholds)
		assert.Truef(t, strings.Contains(d.AutomatedResponse, tt.want),
			"attack %s: response %q should contain %q", tt.attack, d.AutomatedResponse, tt.want)
	}
}

func TestDecideRestrictAndAllowResponses(t *testing.T) {
	restrict := Decide(scored(75, models.AttackUnknown), defaultThresholds)
	assert.Equal(t, "rate-limit source and flag for analyst review", restrict.AutomatedResponse)

	allow := Decide(scored(10, models.AttackBenign), defaultThresholds)
	assert.Equal(t, "none", allow.AutomatedResponse)
}

func TestDecideIdempotent(t *testing.T) {
	e := scored(88, models.AttackPortScan)
	first := Decide(e, defaultThresholds)
	second := Decide(e, defaultThresholds)
	assert.Equal(t, first, second)
}

func TestDecideMonotonic(t *testing.T) {
	rank := map[models.AccessDecision]int{
		models.AccessAllow:    0,
		models.AccessRestrict: 1,
		models.AccessBlock:    2,
	}

	prev := -1
	for risk := 0.0; risk <= 100; risk += 0.5 {
		d := Decide(scored(risk, models.AttackUnknown), defaultThresholds)
		assert.GreaterOrEqual(t, rank[d.AccessDecision], prev,
			"decision must never get less restrictive as risk grows (risk=%v)", risk)
		prev = rank[d.AccessDecision]
	}
}

func TestDecideCarriesEventReference(t *testing.T) {
	d := Decide(scored(50, models.AttackBenign), defaultThresholds)
	assert.Equal(t, "evt-1", d.EventID)
	assert.Equal(t, 50.0, d.RiskScore)
}
