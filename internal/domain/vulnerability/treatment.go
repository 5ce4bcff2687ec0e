package vulnerability

import (
	"strings"
	"time"

	"vulntrack/internal/shared/biztime"
)

type TreatmentStatus string

const (
	TreatmentUntreated         TreatmentStatus = "UNTREATED"
	TreatmentInProgress        TreatmentStatus = "IN_PROGRESS"
	TreatmentAccepted          TreatmentStatus = "ACCEPTED"
	TreatmentAcceptedUndefined TreatmentStatus = "ACCEPTED_UNDEFINED"
)

type AcceptanceStatus string

const (
	AcceptanceNone      AcceptanceStatus = ""
	AcceptanceSubmitted AcceptanceStatus = "SUBMITTED"
	AcceptanceApproved  AcceptanceStatus = "APPROVED"
	AcceptanceRejected  AcceptanceStatus = "REJECTED"
)

// ParseTreatmentStatus accepts the legacy NEW alias for UNTREATED.
func ParseTreatmentStatus(s string) (TreatmentStatus, error) {
	switch st := TreatmentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case "NEW":
		return TreatmentUntreated, nil
	case TreatmentUntreated, TreatmentInProgress, TreatmentAccepted, TreatmentAcceptedUndefined:
		return st, nil
	}
	return "", ErrInvalidTreatmentStatus
}

func (s TreatmentStatus) String() string {
	return string(s)
}

// Treatment is one entry of the append-only treatment history.
type Treatment struct {
	ID               string
	Status           TreatmentStatus
	AcceptanceStatus AcceptanceStatus
	AcceptedUntil    *time.Time
	Justification    string
	Assigned         string
	ModifiedBy       string
	ModifiedDate     time.Time
}

// SameValues compares the user-supplied attributes of two treatments.
func (t Treatment) SameValues(o Treatment) bool {
	if t.Status != o.Status || t.Justification != o.Justification || t.Assigned != o.Assigned {
		return false
	}
	if t.AcceptedUntil == nil || o.AcceptedUntil == nil {
		return t.AcceptedUntil == nil && o.AcceptedUntil == nil
	}
	return t.AcceptedUntil.Equal(*o.AcceptedUntil)
}

// IsPendingAcceptance reports a submitted, not yet handled, permanent
// acceptance.
func (t Treatment) IsPendingAcceptance() bool {
	return t.Status == TreatmentAcceptedUndefined && t.AcceptanceStatus == AcceptanceSubmitted
}

// TreatmentProposal is the caller-supplied part of a new treatment.
type TreatmentProposal struct {
	Status        TreatmentStatus
	Justification string
	Assigned      string
	AcceptedUntil *time.Time
}

func (p TreatmentProposal) toTreatment() Treatment {
	t := Treatment{
		Status:        p.Status,
		Justification: strings.TrimSpace(p.Justification),
		Assigned:      strings.ToLower(strings.TrimSpace(p.Assigned)),
	}
	switch p.Status {
	case TreatmentAccepted:
		if p.AcceptedUntil != nil {
			until := biztime.ToStorage(*p.AcceptedUntil)
			t.AcceptedUntil = &until
		}
	case TreatmentAcceptedUndefined:
		t.AcceptanceStatus = AcceptanceSubmitted
	}
	return t
}
