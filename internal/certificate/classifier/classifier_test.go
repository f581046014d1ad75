package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certverify/internal/certificate/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		want  models.VerificationStatus
	}{
		{"perfect score", 100, models.StatusVerified},
		{"well above verified threshold", 92.5, models.StatusVerified},
		{"exactly at verified boundary", 80, models.StatusVerified},
		{"just below verified boundary", 79.99, models.StatusPartiallyVerified},
		{"middle of partial band", 65, models.StatusPartiallyVerified},
		{"exactly at partial boundary", 50, models.StatusPartiallyVerified},
		{"just below partial boundary", 49.99, models.StatusFailed},
		{"low score", 12, models.StatusFailed},
		{"zero score", 0, models.StatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.score))
		})
	}
}

// TestClassify_BandsPartitionScores sweeps the score range and checks the
// bands are exhaustive and mutually exclusive.
func TestClassify_BandsPartitionScores(t *testing.T) {
	for score := 0.0; score <= 100.0; score += 0.25 {
		got := Classify(score)
		switch {
		case score >= 80:
			assert.Equal(t, models.StatusVerified, got, "score %v", score)
		case score >= 50:
			assert.Equal(t, models.StatusPartiallyVerified, got, "score %v", score)
		default:
			assert.Equal(t, models.StatusFailed, got, "score %v", score)
		}
	}
}
