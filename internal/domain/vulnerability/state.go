package vulnerability

import "time"

type StateStatus string

const (
	StateOpen    StateStatus = "OPEN"
	StateClosed  StateStatus = "CLOSED"
	StateDeleted StateStatus = "DELETED"
)

type Source string

const (
	SourceAnalyst  Source = "analyst"
	SourceCustomer Source = "customer"
	SourceMachine  Source = "machine"
	SourceSystem   Source = "system"
)

// State justifications.
const (
	StateJustificationExclusion      = "EXCLUSION"
	StateJustificationVerifiedSafe   = "VERIFIED_AS_SAFE"
	StateJustificationReportingError = "REPORTING_ERROR"
)

// State is one entry of the append-only lifecycle history.
type State struct {
	ID            string
	Status        StateStatus
	Source        Source
	Justification string
	ModifiedBy    string
	ModifiedDate  time.Time
}
