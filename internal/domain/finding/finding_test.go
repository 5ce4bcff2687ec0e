package finding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func completeDraft(t *testing.T) *Finding {
	t.Helper()
	f, err := NewFinding("f-1", "Acme", "SQL injection in login", 7.2, "hacker@vulntrack.io", now)
	require.NoError(t, err)
	require.NoError(t, f.UpdateDescription("user input reaches the query", "data exfiltration", "use bound parameters", 7.2))
	return f
}

func TestNewFinding(t *testing.T) {
	f, err := NewFinding("f-1", " Acme ", "title", 5, "Hacker@vulntrack.io", now)
	require.NoError(t, err)
	assert.Equal(t, "acme", f.GroupName())
	assert.Equal(t, StatusCreated, f.Status())
	assert.Equal(t, "hacker@vulntrack.io", f.ModifiedBy())

	_, err = NewFinding("f-2", "acme", "title", 10.5, "h", now)
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestSubmit_RequiresCompleteDraft(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Finding)
		vulns   int
		wantErr error
	}{
		{"complete", func(f *Finding) {}, 1, nil},
		{"no vulnerabilities", func(f *Finding) {}, 0, ErrIncompleteDraft},
		{"no threat", func(f *Finding) { f.threat = "" }, 2, ErrIncompleteDraft},
		{"no recommendation", func(f *Finding) { f.recommendation = " " }, 2, ErrIncompleteDraft},
		{"no severity", func(f *Finding) { f.severity = 0 }, 2, ErrIncompleteDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := completeDraft(t)
			tt.mutate(f)
			err := f.Submit(tt.vulns, "hacker@vulntrack.io", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StatusCreated, f.Status())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusSubmitted, f.Status())
		})
	}
}

func TestLifecycle(t *testing.T) {
	f := completeDraft(t)
	require.NoError(t, f.Submit(1, "hacker@vulntrack.io", now))
	require.NoError(t, f.Reject("reviewer@vulntrack.io", now.Add(time.Hour)))
	assert.Equal(t, StatusRejected, f.Status())

	require.NoError(t, f.Submit(1, "hacker@vulntrack.io", now.Add(2*time.Hour)))
	require.NoError(t, f.Approve("reviewer@vulntrack.io", now.Add(3*time.Hour)))
	assert.True(t, f.Status().IsReleased())
	assert.ErrorIs(t, f.Submit(1, "hacker@vulntrack.io", now), ErrInvalidTransition)

	require.NoError(t, f.Remove("reviewer@vulntrack.io", now.Add(4*time.Hour)))
	assert.ErrorIs(t, f.Remove("reviewer@vulntrack.io", now), ErrInvalidTransition)
}

func TestApproveRequiresSubmitted(t *testing.T) {
	f := completeDraft(t)
	assert.ErrorIs(t, f.Approve("reviewer@vulntrack.io", now), ErrInvalidTransition)
}

func TestNewComment(t *testing.T) {
	c, err := NewComment("c-1", "f-1", CommentZeroRisk, "not reachable", "Alice@Acme.com", now)
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.com", c.Email)

	_, err = NewComment("c-2", "f-1", CommentType("rant"), "x", "a", now)
	assert.ErrorIs(t, err, ErrInvalidCommentType)
	_, err = NewComment("c-3", "f-1", CommentZeroRisk, "  ", "a", now)
	assert.ErrorIs(t, err, ErrEmptyComment)
}
