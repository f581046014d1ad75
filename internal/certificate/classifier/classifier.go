// Package classifier maps a forgery risk score onto a verification status.
//
// This threshold table is the single source of truth for trust labels. Any
// surface that shows a label reads the persisted status; nothing may
// re-derive a label from the raw score.
package classifier

import "certverify/internal/certificate/models"

// Score thresholds. Boundary ties belong to the higher-trust band.
const (
	VerifiedThreshold = 80.0
	PartialThreshold  = 50.0
)

// Classify maps a risk score (0-100, higher = more trustworthy) to its
// verification status. Callers are responsible for range-validating the score
// first; out-of-range input is an extraction contract violation, not a
// classification case.
func Classify(score float64) models.VerificationStatus {
	switch {
	case score >= VerifiedThreshold:
		return models.StatusVerified
	case score >= PartialThreshold:
		return models.StatusPartiallyVerified
	default:
		return models.StatusFailed
	}
}
