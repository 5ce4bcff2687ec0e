package finding

import (
	"fmt"
	"strings"
	"time"
)

// Finding is a reported class of issue in a group. Its state gates whether
// its vulnerabilities are released to the customer.
type Finding struct {
	id             string
	groupName      string
	title          string
	description    string
	threat         string
	recommendation string
	severity       float64
	status         Status
	modifiedBy     string
	modifiedDate   time.Time
	createdAt      time.Time
}

func NewFinding(id, groupName, title string, severity float64, actor string, now time.Time) (*Finding, error) {
	if id == "" {
		return nil, fmt.Errorf("finding ID is required")
	}
	if strings.TrimSpace(groupName) == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if severity < 0 || severity > 10 {
		return nil, ErrInvalidSeverity
	}
	now = now.UTC()
	return &Finding{
		id:           id,
		groupName:    strings.ToLower(strings.TrimSpace(groupName)),
		title:        title,
		severity:     severity,
		status:       StatusCreated,
		modifiedBy:   strings.ToLower(actor),
		modifiedDate: now,
		createdAt:    now,
	}, nil
}

func ReconstructFinding(
	id, groupName, title, description, threat, recommendation string,
	severity float64,
	status Status,
	modifiedBy string,
	modifiedDate, createdAt time.Time,
) *Finding {
	return &Finding{
		id:             id,
		groupName:      groupName,
		title:          title,
		description:    description,
		threat:         threat,
		recommendation: recommendation,
		severity:       severity,
		status:         status,
		modifiedBy:     modifiedBy,
		modifiedDate:   modifiedDate,
		createdAt:      createdAt,
	}
}

func (f *Finding) ID() string              { return f.id }
func (f *Finding) GroupName() string       { return f.groupName }
func (f *Finding) Title() string           { return f.title }
func (f *Finding) Description() string     { return f.description }
func (f *Finding) Threat() string          { return f.threat }
func (f *Finding) Recommendation() string  { return f.recommendation }
func (f *Finding) Severity() float64       { return f.severity }
func (f *Finding) Status() Status          { return f.status }
func (f *Finding) ModifiedBy() string      { return f.modifiedBy }
func (f *Finding) ModifiedDate() time.Time { return f.modifiedDate }
func (f *Finding) CreatedAt() time.Time    { return f.createdAt }

// UpdateDescription edits the draft text. Only unreleased findings change.
func (f *Finding) UpdateDescription(description, threat, recommendation string, severity float64) error {
	if f.status == StatusDeleted {
		return ErrInvalidTransition
	}
	if severity < 0 || severity > 10 {
		return ErrInvalidSeverity
	}
	f.description = description
	f.threat = threat
	f.recommendation = recommendation
	f.severity = severity
	return nil
}

// Submit sends a draft for review. The draft must be complete and own at
// least one vulnerability.
func (f *Finding) Submit(vulnerabilityCount int, actor string, now time.Time) error {
	if !f.status.CanTransitionTo(StatusSubmitted) {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(f.description) == "" ||
		strings.TrimSpace(f.threat) == "" ||
		strings.TrimSpace(f.recommendation) == "" ||
		f.severity <= 0 ||
		vulnerabilityCount == 0 {
		return ErrIncompleteDraft
	}
	return f.transition(StatusSubmitted, actor, now)
}

func (f *Finding) Approve(actor string, now time.Time) error {
	return f.transition(StatusApproved, actor, now)
}

func (f *Finding) Reject(actor string, now time.Time) error {
	return f.transition(StatusRejected, actor, now)
}

func (f *Finding) Remove(actor string, now time.Time) error {
	return f.transition(StatusDeleted, actor, now)
}

func (f *Finding) transition(next Status, actor string, now time.Time) error {
	if !f.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	f.status = next
	f.modifiedBy = strings.ToLower(actor)
	f.modifiedDate = now.UTC()
	return nil
}
