package mappers

import (
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/infrastructure/persistence/models"
)

func FindingToModel(f *finding.Finding) *models.FindingModel {
	return &models.FindingModel{
		ID:             f.ID(),
		GroupName:      f.GroupName(),
		Title:          f.Title(),
		Description:    f.Description(),
		Threat:         f.Threat(),
		Recommendation: f.Recommendation(),
		Severity:       f.Severity(),
		Status:         string(f.Status()),
		ModifiedBy:     f.ModifiedBy(),
		ModifiedDate:   f.ModifiedDate().UTC(),
		CreatedAt:      f.CreatedAt().UTC(),
	}
}

func FindingToDomain(m *models.FindingModel) *finding.Finding {
	return finding.ReconstructFinding(
		m.ID,
		m.GroupName,
		m.Title,
		m.Description,
		m.Threat,
		m.Recommendation,
		m.Severity,
		finding.Status(m.Status),
		m.ModifiedBy,
		m.ModifiedDate.UTC(),
		m.CreatedAt.UTC(),
	)
}

func CommentToModel(c *finding.Comment) *models.CommentModel {
	return &models.CommentModel{
		ID:        c.ID,
		FindingID: c.FindingID,
		Type:      string(c.Type),
		Content:   c.Content,
		Email:     c.Email,
		CreatedAt: c.CreatedAt.UTC(),
	}
}

func CommentToDomain(m *models.CommentModel) *finding.Comment {
	return &finding.Comment{
		ID:        m.ID,
		FindingID: m.FindingID,
		Type:      finding.CommentType(m.Type),
		Content:   m.Content,
		Email:     m.Email,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
