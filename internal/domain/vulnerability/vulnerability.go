package vulnerability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vulntrack/internal/shared/biztime"
)

type Type string

const (
	TypeLines  Type = "lines"
	TypePorts  Type = "ports"
	TypeInputs Type = "inputs"
)

func (t Type) IsValid() bool {
	return t == TypeLines || t == TypePorts || t == TypeInputs
}

// ExpiredAcceptanceJustification is written when a temporary acceptance
// lapses.
const ExpiredAcceptanceJustification = "Expired acceptance"

// Vulnerability is one concrete occurrence of a finding. Every lifecycle
// change appends to one of its histories; the current value of each is the
// last entry.
type Vulnerability struct {
	id        string
	findingID string
	groupName string
	root      string
	vulnType  Type
	where     string
	specific  string
	hash      string
	tags      []string
	createdAt time.Time

	states        []State
	treatments    []Treatment
	verifications []Verification
	zeroRisks     []ZeroRisk

	committed committedCounts
}

type committedCounts struct {
	states, treatments, verifications, zeroRisks int
}

// Pending holds history entries appended since the last commit. The *From
// fields are the history positions of each slice's first entry.
type Pending struct {
	States        []State
	Treatments    []Treatment
	Verifications []Verification
	ZeroRisks     []ZeroRisk

	StatesFrom, TreatmentsFrom, VerificationsFrom, ZeroRisksFrom int
}

func (p Pending) IsEmpty() bool {
	return len(p.States) == 0 && len(p.Treatments) == 0 && len(p.Verifications) == 0 && len(p.ZeroRisks) == 0
}

func NewVulnerability(id, findingID, groupName, root string, t Type, where, specific string, source Source, actor string, now time.Time) (*Vulnerability, error) {
	if id == "" || findingID == "" {
		return nil, fmt.Errorf("vulnerability and finding IDs are required")
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid vulnerability type: %s", t)
	}
	if strings.TrimSpace(where) == "" {
		return nil, fmt.Errorf("where is required")
	}

	v := &Vulnerability{
		id:        id,
		findingID: findingID,
		groupName: strings.ToLower(strings.TrimSpace(groupName)),
		root:      strings.TrimSpace(root),
		vulnType:  t,
		where:     strings.TrimSpace(where),
		specific:  strings.TrimSpace(specific),
		tags:      []string{},
		createdAt: now.UTC(),
	}
	v.hash = Fingerprint(findingID, t, v.where, v.specific)
	v.appendState(StateOpen, source, "", actor, now)
	return v, nil
}

// ReconstructVulnerability rebuilds a persisted aggregate. Histories must be
// ordered oldest first.
func ReconstructVulnerability(
	id, findingID, groupName, root string,
	t Type,
	where, specific, hash string,
	tags []string,
	createdAt time.Time,
	states []State,
	treatments []Treatment,
	verifications []Verification,
	zeroRisks []ZeroRisk,
) *Vulnerability {
	if tags == nil {
		tags = []string{}
	}
	return &Vulnerability{
		id:            id,
		findingID:     findingID,
		groupName:     groupName,
		root:          root,
		vulnType:      t,
		where:         where,
		specific:      specific,
		hash:          hash,
		tags:          tags,
		createdAt:     createdAt,
		states:        states,
		treatments:    treatments,
		verifications: verifications,
		zeroRisks:     zeroRisks,
		committed: committedCounts{
			states:        len(states),
			treatments:    len(treatments),
			verifications: len(verifications),
			zeroRisks:     len(zeroRisks),
		},
	}
}

func (v *Vulnerability) ID() string           { return v.id }
func (v *Vulnerability) FindingID() string    { return v.findingID }
func (v *Vulnerability) GroupName() string    { return v.groupName }
func (v *Vulnerability) Root() string         { return v.root }
func (v *Vulnerability) Type() Type           { return v.vulnType }
func (v *Vulnerability) Where() string        { return v.where }
func (v *Vulnerability) Specific() string     { return v.specific }
func (v *Vulnerability) Hash() string         { return v.hash }
func (v *Vulnerability) CreatedAt() time.Time { return v.createdAt }

func (v *Vulnerability) Tags() []string {
	return append([]string(nil), v.tags...)
}

func (v *Vulnerability) HistoricState() []State {
	return append([]State(nil), v.states...)
}

func (v *Vulnerability) HistoricTreatment() []Treatment {
	return append([]Treatment(nil), v.treatments...)
}

func (v *Vulnerability) HistoricVerification() []Verification {
	return append([]Verification(nil), v.verifications...)
}

func (v *Vulnerability) HistoricZeroRisk() []ZeroRisk {
	return append([]ZeroRisk(nil), v.zeroRisks...)
}

// State returns the current lifecycle state.
func (v *Vulnerability) State() StateStatus {
	if len(v.states) == 0 {
		return StateOpen
	}
	return v.states[len(v.states)-1].Status
}

// CurrentTreatment returns the last treatment, or an implicit UNTREATED
// entry when the history is empty.
func (v *Vulnerability) CurrentTreatment() Treatment {
	if len(v.treatments) == 0 {
		return Treatment{Status: TreatmentUntreated, ModifiedDate: v.createdAt}
	}
	return v.treatments[len(v.treatments)-1]
}

// CurrentVerification returns the last verification entry, if any.
func (v *Vulnerability) CurrentVerification() (Verification, bool) {
	if len(v.verifications) == 0 {
		return Verification{}, false
	}
	return v.verifications[len(v.verifications)-1], true
}

// CurrentZeroRisk returns the last zero-risk entry, if any.
func (v *Vulnerability) CurrentZeroRisk() (ZeroRisk, bool) {
	if len(v.zeroRisks) == 0 {
		return ZeroRisk{}, false
	}
	return v.zeroRisks[len(v.zeroRisks)-1], true
}

func (v *Vulnerability) Efficacy() float64 {
	return Efficacy(v.State(), v.verifications)
}

// ProposeTreatment validates and appends a new treatment. Nothing is
// appended when a guard fails.
func (v *Vulnerability) ProposeTreatment(p TreatmentProposal, actor string, ac AcceptanceContext) (Treatment, error) {
	status, err := ParseTreatmentStatus(string(p.Status))
	if err != nil {
		return Treatment{}, err
	}
	p.Status = status
	if v.State() != StateOpen {
		return Treatment{}, ErrVulnerabilityNotOpen
	}
	if err := CheckJustification(p.Justification, ac.MaxJustificationLength); err != nil {
		return Treatment{}, err
	}

	next := p.toTreatment()
	if next.SameValues(v.CurrentTreatment()) {
		return Treatment{}, ErrSameValues
	}
	if next.Status == TreatmentAccepted {
		if err := checkAcceptance(next, v.treatments, ac); err != nil {
			return Treatment{}, err
		}
	}

	next.ModifiedBy = strings.ToLower(actor)
	return v.appendTreatment(next, ac.Now), nil
}

// ApproveAcceptance approves a pending permanent acceptance.
func (v *Vulnerability) ApproveAcceptance(actor string, now time.Time) (Treatment, error) {
	current := v.CurrentTreatment()
	if !current.IsPendingAcceptance() {
		return Treatment{}, ErrAcceptanceNotRequested
	}
	next := current
	next.AcceptanceStatus = AcceptanceApproved
	next.ModifiedBy = strings.ToLower(actor)
	return v.appendTreatment(next, now), nil
}

// RejectAcceptance records the rejection and then restores the treatment
// that preceded the request, re-dated to now. It returns the restored
// entry.
func (v *Vulnerability) RejectAcceptance(justification, actor string, now time.Time) (Treatment, error) {
	current := v.CurrentTreatment()
	if !current.IsPendingAcceptance() {
		return Treatment{}, ErrAcceptanceNotRequested
	}

	restored := Treatment{Status: TreatmentUntreated, ModifiedBy: strings.ToLower(actor)}
	if n := len(v.treatments); n >= 2 {
		restored = v.treatments[n-2]
	}

	rejected := current
	rejected.AcceptanceStatus = AcceptanceRejected
	rejected.ModifiedBy = strings.ToLower(actor)
	if j := strings.TrimSpace(justification); j != "" {
		rejected.Justification = j
	}
	v.appendTreatment(rejected, now)
	return v.appendTreatment(restored, now), nil
}

// ExpireAcceptance reverts a temporary acceptance whose deadline passed.
// It reports whether anything changed.
func (v *Vulnerability) ExpireAcceptance(actor string, now time.Time) (Treatment, bool) {
	current := v.CurrentTreatment()
	if current.Status != TreatmentAccepted || current.AcceptedUntil == nil || !current.AcceptedUntil.Before(now) {
		return Treatment{}, false
	}
	if v.State() != StateOpen {
		return Treatment{}, false
	}
	next := Treatment{
		Status:        TreatmentUntreated,
		Justification: ExpiredAcceptanceJustification,
		Assigned:      current.Assigned,
		ModifiedBy:    actor,
	}
	return v.appendTreatment(next, now), true
}

func (v *Vulnerability) RequestZeroRisk(commentID, actor string, now time.Time) (ZeroRisk, error) {
	if v.State() != StateOpen {
		return ZeroRisk{}, ErrVulnerabilityNotOpen
	}
	if current, ok := v.CurrentZeroRisk(); ok {
		switch current.Status {
		case ZeroRiskRequested:
			return ZeroRisk{}, ErrZeroRiskAlreadyRequested
		case ZeroRiskConfirmed:
			return ZeroRisk{}, ErrZeroRiskAlreadyConfirmed
		}
	}
	return v.appendZeroRisk(ZeroRiskRequested, commentID, actor, now), nil
}

func (v *Vulnerability) ConfirmZeroRisk(commentID, actor string, now time.Time) (ZeroRisk, error) {
	return v.resolveZeroRisk(ZeroRiskConfirmed, commentID, actor, now)
}

func (v *Vulnerability) RejectZeroRisk(commentID, actor string, now time.Time) (ZeroRisk, error) {
	return v.resolveZeroRisk(ZeroRiskRejected, commentID, actor, now)
}

func (v *Vulnerability) resolveZeroRisk(status ZeroRiskStatus, commentID, actor string, now time.Time) (ZeroRisk, error) {
	current, ok := v.CurrentZeroRisk()
	if !ok || current.Status != ZeroRiskRequested {
		return ZeroRisk{}, ErrZeroRiskNotRequested
	}
	return v.appendZeroRisk(status, commentID, actor, now), nil
}

// RequestVerification opens a reattack cycle. batch lists every
// vulnerability in the same request.
func (v *Vulnerability) RequestVerification(batch []string, actor string, now time.Time) (Verification, error) {
	if v.State() != StateOpen {
		return Verification{}, ErrVulnerabilityNotOpen
	}
	if current, ok := v.CurrentVerification(); ok && current.Status == VerificationRequested {
		return Verification{}, ErrVerificationAlreadyRequested
	}
	return v.appendVerification(VerificationRequested, batch, actor, now), nil
}

// Verify closes a reattack cycle. When closed is true the vulnerability was
// found remediated and its state moves to CLOSED.
func (v *Vulnerability) Verify(batch []string, closed bool, actor string, now time.Time) (Verification, error) {
	current, ok := v.CurrentVerification()
	if !ok || current.Status != VerificationRequested {
		return Verification{}, ErrVerificationNotRequested
	}
	entry := v.appendVerification(VerificationVerified, batch, actor, now)
	if closed && v.State() == StateOpen {
		v.appendState(StateClosed, SourceAnalyst, StateJustificationVerifiedSafe, actor, now)
	}
	return entry, nil
}

// CloseByExclusion closes an open vulnerability whose location left the
// scan scope, auto-verifying a pending reattack. It reports whether the
// vulnerability changed.
func (v *Vulnerability) CloseByExclusion(actor string, now time.Time) bool {
	if v.State() != StateOpen {
		return false
	}
	v.appendState(StateClosed, SourceAnalyst, StateJustificationExclusion, actor, now)
	if current, ok := v.CurrentVerification(); ok && current.Status == VerificationRequested {
		v.appendVerification(VerificationVerified, []string{v.id}, actor, now)
	}
	return true
}

// Remove soft-deletes the vulnerability. Removing twice is a no-op.
func (v *Vulnerability) Remove(justification, actor string, now time.Time) bool {
	if v.State() == StateDeleted {
		return false
	}
	v.appendState(StateDeleted, SourceAnalyst, justification, actor, now)
	return true
}

// Pending returns entries appended since construction or the last
// MarkCommitted.
func (v *Vulnerability) Pending() Pending {
	return Pending{
		States:        append([]State(nil), v.states[v.committed.states:]...),
		Treatments:    append([]Treatment(nil), v.treatments[v.committed.treatments:]...),
		Verifications: append([]Verification(nil), v.verifications[v.committed.verifications:]...),
		ZeroRisks:     append([]ZeroRisk(nil), v.zeroRisks[v.committed.zeroRisks:]...),

		StatesFrom:        v.committed.states,
		TreatmentsFrom:    v.committed.treatments,
		VerificationsFrom: v.committed.verifications,
		ZeroRisksFrom:     v.committed.zeroRisks,
	}
}

// MarkCommitted is called by the repository once pending entries are stored.
func (v *Vulnerability) MarkCommitted() {
	v.committed = committedCounts{
		states:        len(v.states),
		treatments:    len(v.treatments),
		verifications: len(v.verifications),
		zeroRisks:     len(v.zeroRisks),
	}
}

// entryTime keeps each history non-decreasing even if the clock steps back.
func entryTime(now time.Time, last time.Time) time.Time {
	now = biztime.ToStorage(now)
	if now.Before(last) {
		return last
	}
	return now
}

func (v *Vulnerability) appendState(status StateStatus, source Source, justification, actor string, now time.Time) {
	var last time.Time
	if n := len(v.states); n > 0 {
		last = v.states[n-1].ModifiedDate
	}
	v.states = append(v.states, State{
		ID:            uuid.NewString(),
		Status:        status,
		Source:        source,
		Justification: justification,
		ModifiedBy:    strings.ToLower(actor),
		ModifiedDate:  entryTime(now, last),
	})
}

func (v *Vulnerability) appendTreatment(t Treatment, now time.Time) Treatment {
	var last time.Time
	if n := len(v.treatments); n > 0 {
		last = v.treatments[n-1].ModifiedDate
	}
	t.ID = uuid.NewString()
	t.ModifiedDate = entryTime(now, last)
	v.treatments = append(v.treatments, t)
	return t
}

func (v *Vulnerability) appendVerification(status VerificationStatus, batch []string, actor string, now time.Time) Verification {
	var last time.Time
	if n := len(v.verifications); n > 0 {
		last = v.verifications[n-1].ModifiedDate
	}
	entry := Verification{
		ID:               uuid.NewString(),
		Status:           status,
		ModifiedBy:       strings.ToLower(actor),
		ModifiedDate:     entryTime(now, last),
		VulnerabilityIDs: append([]string(nil), batch...),
	}
	v.verifications = append(v.verifications, entry)
	return entry
}

func (v *Vulnerability) appendZeroRisk(status ZeroRiskStatus, commentID, actor string, now time.Time) ZeroRisk {
	var last time.Time
	if n := len(v.zeroRisks); n > 0 {
		last = v.zeroRisks[n-1].ModifiedDate
	}
	entry := ZeroRisk{
		ID:           uuid.NewString(),
		Status:       status,
		ModifiedBy:   strings.ToLower(actor),
		ModifiedDate: entryTime(now, last),
		CommentID:    commentID,
	}
	v.zeroRisks = append(v.zeroRisks, entry)
	return entry
}
