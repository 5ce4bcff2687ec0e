package vulnerability

import "time"

type ZeroRiskStatus string

const (
	ZeroRiskRequested ZeroRiskStatus = "REQUESTED"
	ZeroRiskConfirmed ZeroRiskStatus = "CONFIRMED"
	ZeroRiskRejected  ZeroRiskStatus = "REJECTED"
)

// ZeroRisk is one entry of the zero-risk history. CommentID points at the
// finding comment holding the justification.
type ZeroRisk struct {
	ID           string
	Status       ZeroRiskStatus
	ModifiedBy   string
	ModifiedDate time.Time
	CommentID    string
}
