package vulnerability

import (
	"math"
	"time"
)

type VerificationStatus string

const (
	VerificationRequested VerificationStatus = "REQUESTED"
	VerificationVerified  VerificationStatus = "VERIFIED"
)

// Verification is one entry of the reattack history. VulnerabilityIDs lists
// every vulnerability handled in the same request.
type Verification struct {
	ID               string
	Status           VerificationStatus
	ModifiedBy       string
	ModifiedDate     time.Time
	VulnerabilityIDs []string
}

// Efficacy returns 100 divided by the number of reattack requests, rounded
// to two decimals, for a closed vulnerability. Anything else scores 0.
func Efficacy(state StateStatus, history []Verification) float64 {
	if state != StateClosed {
		return 0
	}
	cycles := 0
	for _, v := range history {
		if v.Status == VerificationRequested {
			cycles++
		}
	}
	if cycles == 0 {
		return 0
	}
	return math.Round(100/float64(cycles)*100) / 100
}
