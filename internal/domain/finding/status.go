package finding

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDeleted   Status = "DELETED"
)

var statusTransitions = map[Status][]Status{
	StatusCreated:   {StatusSubmitted, StatusDeleted},
	StatusSubmitted: {StatusApproved, StatusRejected, StatusDeleted},
	StatusRejected:  {StatusSubmitted, StatusDeleted},
	StatusApproved:  {StatusDeleted},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusSubmitted, StatusApproved, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsReleased reports whether the finding's vulnerabilities are visible to
// the customer.
func (s Status) IsReleased() bool {
	return s == StatusApproved
}
