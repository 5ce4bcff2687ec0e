package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/infrastructure/persistence/models"
)

// VulnerabilityRows is a vulnerability split into its table rows.
type VulnerabilityRows struct {
	Vulnerability *models.VulnerabilityModel
	States        []models.StateModel
	Treatments    []models.TreatmentModel
	Verifications []models.VerificationModel
	ZeroRisks     []models.ZeroRiskModel
}

// VulnerabilityMapper converts between the aggregate and its rows.
type VulnerabilityMapper interface {
	// ToModel converts the immutable part of the aggregate.
	ToModel(v *vulnerability.Vulnerability) (*models.VulnerabilityModel, error)

	// PendingToRows converts the entries appended since the last commit.
	PendingToRows(v *vulnerability.Vulnerability) (VulnerabilityRows, error)

	// ToDomain rebuilds the aggregate. History rows must be ordered by
	// position.
	ToDomain(rows VulnerabilityRows) (*vulnerability.Vulnerability, error)
}

type VulnerabilityMapperImpl struct{}

func NewVulnerabilityMapper() VulnerabilityMapper {
	return &VulnerabilityMapperImpl{}
}

func (m *VulnerabilityMapperImpl) ToModel(v *vulnerability.Vulnerability) (*models.VulnerabilityModel, error) {
	tags, err := json.Marshal(v.Tags())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return &models.VulnerabilityModel{
		ID:        v.ID(),
		FindingID: v.FindingID(),
		GroupName: v.GroupName(),
		Root:      v.Root(),
		Type:      string(v.Type()),
		Location:  v.Where(),
		Specific:  v.Specific(),
		Hash:      v.Hash(),
		Tags:      datatypes.JSON(tags),
		CreatedAt: v.CreatedAt().UTC(),
	}, nil
}

func (m *VulnerabilityMapperImpl) PendingToRows(v *vulnerability.Vulnerability) (VulnerabilityRows, error) {
	p := v.Pending()
	rows := VulnerabilityRows{}

	for i, s := range p.States {
		rows.States = append(rows.States, models.StateModel{
			ID:              s.ID,
			VulnerabilityID: v.ID(),
			Position:        p.StatesFrom + i,
			Status:          string(s.Status),
			Source:          string(s.Source),
			Justification:   s.Justification,
			ModifiedBy:      s.ModifiedBy,
			ModifiedDate:    s.ModifiedDate.UTC(),
		})
	}

	for i, t := range p.Treatments {
		rows.Treatments = append(rows.Treatments, models.TreatmentModel{
			ID:               t.ID,
			VulnerabilityID:  v.ID(),
			Position:         p.TreatmentsFrom + i,
			Status:           string(t.Status),
			AcceptanceStatus: string(t.AcceptanceStatus),
			AcceptedUntil:    utcPtr(t.AcceptedUntil),
			Justification:    t.Justification,
			Assigned:         t.Assigned,
			ModifiedBy:       t.ModifiedBy,
			ModifiedDate:     t.ModifiedDate.UTC(),
		})
	}

	for i, ver := range p.Verifications {
		ids, err := json.Marshal(ver.VulnerabilityIDs)
		if err != nil {
			return VulnerabilityRows{}, fmt.Errorf("failed to marshal verification batch: %w", err)
		}
		rows.Verifications = append(rows.Verifications, models.VerificationModel{
			ID:               ver.ID,
			VulnerabilityID:  v.ID(),
			Position:         p.VerificationsFrom + i,
			Status:           string(ver.Status),
			VulnerabilityIDs: datatypes.JSON(ids),
			ModifiedBy:       ver.ModifiedBy,
			ModifiedDate:     ver.ModifiedDate.UTC(),
		})
	}

	for i, z := range p.ZeroRisks {
		rows.ZeroRisks = append(rows.ZeroRisks, models.ZeroRiskModel{
			ID:              z.ID,
			VulnerabilityID: v.ID(),
			Position:        p.ZeroRisksFrom + i,
			Status:          string(z.Status),
			CommentID:       z.CommentID,
			ModifiedBy:      z.ModifiedBy,
			ModifiedDate:    z.ModifiedDate.UTC(),
		})
	}

	return rows, nil
}

func (m *VulnerabilityMapperImpl) ToDomain(rows VulnerabilityRows) (*vulnerability.Vulnerability, error) {
	base := rows.Vulnerability

	var tags []string
	if len(base.Tags) > 0 {
		if err := json.Unmarshal(base.Tags, &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags of %s: %w", base.ID, err)
		}
	}

	states := make([]vulnerability.State, 0, len(rows.States))
	for _, s := range rows.States {
		states = append(states, vulnerability.State{
			ID:            s.ID,
			Status:        vulnerability.StateStatus(s.Status),
			Source:        vulnerability.Source(s.Source),
			Justification: s.Justification,
			ModifiedBy:    s.ModifiedBy,
			ModifiedDate:  s.ModifiedDate.UTC(),
		})
	}

	treatments := make([]vulnerability.Treatment, 0, len(rows.Treatments))
	for _, t := range rows.Treatments {
		treatments = append(treatments, vulnerability.Treatment{
			ID:               t.ID,
			Status:           vulnerability.TreatmentStatus(t.Status),
			AcceptanceStatus: vulnerability.AcceptanceStatus(t.AcceptanceStatus),
			AcceptedUntil:    utcPtr(t.AcceptedUntil),
			Justification:    t.Justification,
			Assigned:         t.Assigned,
			ModifiedBy:       t.ModifiedBy,
			ModifiedDate:     t.ModifiedDate.UTC(),
		})
	}

	verifications := make([]vulnerability.Verification, 0, len(rows.Verifications))
	for _, ver := range rows.Verifications {
		var ids []string
		if len(ver.VulnerabilityIDs) > 0 {
			if err := json.Unmarshal(ver.VulnerabilityIDs, &ids); err != nil {
				return nil, fmt.Errorf("failed to unmarshal verification batch %s: %w", ver.ID, err)
			}
		}
		verifications = append(verifications, vulnerability.Verification{
			ID:               ver.ID,
			Status:           vulnerability.VerificationStatus(ver.Status),
			ModifiedBy:       ver.ModifiedBy,
			ModifiedDate:     ver.ModifiedDate.UTC(),
			VulnerabilityIDs: ids,
		})
	}

	zeroRisks := make([]vulnerability.ZeroRisk, 0, len(rows.ZeroRisks))
	for _, z := range rows.ZeroRisks {
		zeroRisks = append(zeroRisks, vulnerability.ZeroRisk{
			ID:           z.ID,
			Status:       vulnerability.ZeroRiskStatus(z.Status),
			ModifiedBy:   z.ModifiedBy,
			ModifiedDate: z.ModifiedDate.UTC(),
			CommentID:    z.CommentID,
		})
	}

	return vulnerability.ReconstructVulnerability(
		base.ID,
		base.FindingID,
		base.GroupName,
		base.Root,
		vulnerability.Type(base.Type),
		base.Location,
		base.Specific,
		base.Hash,
		tags,
		base.CreatedAt.UTC(),
		states,
		treatments,
		verifications,
		zeroRisks,
	), nil
}
