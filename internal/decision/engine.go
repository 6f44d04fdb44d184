// Package decision maps risk scores to Zero-Trust access decisions and
// automated responses. Decide is a pure function of its inputs so replaying
// a decision always reproduces it.
package decision

import (
	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/models"
)

// blockResponses parameterizes the isolate/terminate action by attack type.
var blockResponses = map[models.AttackType]string{
	models.AttackBruteForce:     "terminate session and lock source account",
	models.AttackRansomware:     "isolate endpoint and snapshot volatile memory",
	models.AttackSQLInjection:   "block source and push WAF virtual patch",
	models.AttackMalwareC2:      "quarantine host and sinkhole C2 destination",
	models.AttackDDoS:           "divert traffic to scrubbing and rate-limit source",
	models.AttackPortScan:       "drop source at perimeter firewall",
	models.AttackExposedService: "block external access to exposed service",
}

const (
	defaultBlockResponse = "isolate source and terminate active connections"
	restrictResponse     = "rate-limit source and flag for analyst review"
	allowResponse        = "none"
	wouldBlockSuffix     = " [would-block (auto-block disabled)]"
)

// Decide converts one scored event into a Decision under the given threshold
// snapshot. Boundary scores belong to the stricter bucket: score ==
// block_threshold blocks, score == alert_threshold restricts.
func Decide(scored models.ScoredEvent, cfg config.Thresholds) models.Decision {
	d := models.Decision{
		EventID:    scored.ID,
		RiskScore:  scored.RiskScore,
		AttackType: scored.AttackType,
		DecidedAt:  scored.Timestamp,
	}

	switch {
	case scored.RiskScore >= cfg.BlockThreshold:
		if cfg.AutoBlock {
			d.AccessDecision = models.AccessBlock
			d.AutomatedResponse = blockResponse(scored.AttackType)
		} else {
			// Enforcement suppressed, decision still recorded.
			d.AccessDecision = models.AccessRestrict
			d.AutomatedResponse = blockResponse(scored.AttackType) + wouldBlockSuffix
		}
	case scored.RiskScore >= cfg.AlertThreshold:
		d.AccessDecision = models.AccessRestrict
		d.AutomatedResponse = restrictResponse
	default:
		d.AccessDecision = models.AccessAllow
		d.AutomatedResponse = allowResponse
	}

	return d
}

func blockResponse(attackType models.AttackType) string {
	if resp, ok := blockResponses[attackType]; ok {
		return resp
	}
	return defaultBlockResponse
}
