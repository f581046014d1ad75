package audit

import (
	"time"

	id "certverify/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	OccurredAt time.Time
	OwnerID    id.OwnerID
	Subject    string
	Action     string
	Detail     string
}

// Actions recorded by the ingestion and read paths.
const (
	ActionCertificateIngested = "certificate.ingested"
	ActionShareViewed         = "certificate.share_viewed"
	ActionPortfolioViewed     = "portfolio.viewed"
)
