package vulnerability

import (
	"strings"
	"time"
	"unicode/utf8"

	"vulntrack/internal/domain/organization"
	"vulntrack/internal/shared/biztime"
)

// AcceptanceContext carries what the treatment guards need from outside
// the aggregate. MaxJustificationLength <= 0 means no limit.
type AcceptanceContext struct {
	Policies               organization.Policies
	Severity               float64
	Now                    time.Time
	MaxJustificationLength int
}

// CheckJustification rejects empty or over-long justifications. max <= 0
// means no limit.
func CheckJustification(text string, max int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidJustification
	}
	if max > 0 && utf8.RuneCountInString(text) > max {
		return ErrInvalidJustification
	}
	return nil
}

// checkAcceptance runs the temporary-acceptance guards in order: date,
// day bound, severity range, acceptance count.
func checkAcceptance(t Treatment, history []Treatment, ac AcceptanceContext) error {
	if t.AcceptedUntil == nil {
		return ErrAcceptanceDateRequired
	}

	days := biztime.DaysUntil(ac.Now, *t.AcceptedUntil)
	if days < 0 {
		return ErrInvalidAcceptanceDays
	}
	if max := ac.Policies.MaxAcceptanceDays; max != nil && days > *max {
		return ErrInvalidAcceptanceDays
	}

	lo, hi := ac.Policies.SeverityRange()
	if ac.Severity < lo || ac.Severity > hi {
		return ErrInvalidAcceptanceSev
	}

	if max := ac.Policies.MaxNumberAcceptances; max != nil {
		if countAcceptances(history, ac.Policies.NumberAcceptancesEffectiveDate) >= *max {
			return ErrInvalidNumberAcceptances
		}
	}
	return nil
}

// countAcceptances counts temporary acceptances dated after since. A nil
// since counts the whole history.
func countAcceptances(history []Treatment, since *time.Time) int {
	n := 0
	for _, t := range history {
		if t.Status != TreatmentAccepted {
			continue
		}
		if since != nil && !t.ModifiedDate.After(*since) {
			continue
		}
		n++
	}
	return n
}
