package organization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestPolicies_SeverityRangeDefaults(t *testing.T) {
	lo, hi := Policies{}.SeverityRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)

	lo, hi = Policies{MaxAcceptanceSeverity: floatPtr(8.9)}.SeverityRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 8.9, hi)
}

func TestPolicies_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Policies
		wantErr error
	}{
		{"empty is valid", Policies{}, nil},
		{"negative days", Policies{MaxAcceptanceDays: intPtr(-1)}, ErrInvalidAcceptanceDays},
		{"min above max", Policies{MinAcceptanceSeverity: floatPtr(7), MaxAcceptanceSeverity: floatPtr(3)}, ErrInvalidSeverityRange},
		{"max above ten", Policies{MaxAcceptanceSeverity: floatPtr(10.1)}, ErrInvalidSeverityRange},
		{"negative min", Policies{MinAcceptanceSeverity: floatPtr(-0.1)}, ErrInvalidSeverityRange},
		{"negative acceptances", Policies{MaxNumberAcceptances: intPtr(-2)}, ErrInvalidNumberAcceptances},
		{"zero acceptances", Policies{MaxNumberAcceptances: intPtr(0)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdatePolicies_MovesEffectiveDateOnlyWhenCeilingChanges(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	org, err := NewOrganization("org-1", "Acme", created)
	require.NoError(t, err)

	first := created.Add(24 * time.Hour)
	require.NoError(t, org.UpdatePolicies(Policies{MaxNumberAcceptances: intPtr(3)}, "Admin@vulntrack.io", first))
	require.NotNil(t, org.Policies().NumberAcceptancesEffectiveDate)
	assert.Equal(t, first, *org.Policies().NumberAcceptancesEffectiveDate)
	assert.Equal(t, "admin@vulntrack.io", org.Policies().ModifiedBy)

	second := first.Add(24 * time.Hour)
	require.NoError(t, org.UpdatePolicies(Policies{MaxNumberAcceptances: intPtr(3), MaxAcceptanceDays: intPtr(90)}, "admin@vulntrack.io", second))
	assert.Equal(t, first, *org.Policies().NumberAcceptancesEffectiveDate)
	assert.Equal(t, second, org.Policies().ModifiedDate)

	third := second.Add(24 * time.Hour)
	require.NoError(t, org.UpdatePolicies(Policies{MaxNumberAcceptances: intPtr(5), MaxAcceptanceDays: intPtr(90)}, "admin@vulntrack.io", third))
	assert.Equal(t, third, *org.Policies().NumberAcceptancesEffectiveDate)
}

func TestUpdatePolicies_RejectsInvalidAndUnchanged(t *testing.T) {
	org := ReconstructOrganization("org-1", "acme", Policies{MaxAcceptanceDays: intPtr(30)}, time.Now())

	assert.ErrorIs(t, org.UpdatePolicies(Policies{MaxAcceptanceDays: intPtr(-5)}, "a", time.Now()), ErrInvalidAcceptanceDays)
	assert.ErrorIs(t, org.UpdatePolicies(Policies{MaxAcceptanceDays: intPtr(30)}, "a", time.Now()), ErrPoliciesUnchanged)
	assert.Equal(t, 30, *org.Policies().MaxAcceptanceDays)
}
