package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"vulntrack/internal/domain/finding"
	"vulntrack/internal/infrastructure/persistence/mappers"
	"vulntrack/internal/infrastructure/persistence/models"
	"vulntrack/internal/shared/db"
	"vulntrack/internal/shared/logger"
)

var (
	_ finding.Repository        = (*FindingRepository)(nil)
	_ finding.CommentRepository = (*CommentRepository)(nil)
)

type FindingRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewFindingRepository(db *gorm.DB, log logger.Interface) *FindingRepository {
	return &FindingRepository{db: db, logger: log}
}

func (r *FindingRepository) Get(ctx context.Context, id string) (*finding.Finding, error) {
	var model models.FindingModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return mappers.FindingToDomain(&model), nil
}

func (r *FindingRepository) Create(ctx context.Context, f *finding.Finding) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.FindingToModel(f)).Error; err != nil {
		r.logger.Errorw("failed to create finding", "finding_id", f.ID(), "error", err)
		return fmt.Errorf("failed to create finding: %w", err)
	}
	return nil
}

func (r *FindingRepository) Update(ctx context.Context, f *finding.Finding) error {
	model := mappers.FindingToModel(f)
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.FindingModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"description":    model.Description,
			"threat":         model.Threat,
			"recommendation": model.Recommendation,
			"severity":       model.Severity,
			"status":         model.Status,
			"modified_by":    model.ModifiedBy,
			"modified_date":  model.ModifiedDate,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update finding", "finding_id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update finding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return finding.ErrFindingNotFound
	}
	return nil
}

func (r *FindingRepository) ListByGroup(ctx context.Context, groupName string) ([]*finding.Finding, error) {
	var list []models.FindingModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("group_name = ?", groupName).
		Order("created_at, id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	out := make([]*finding.Finding, 0, len(list))
	for i := range list {
		out = append(out, mappers.FindingToDomain(&list[i]))
	}
	return out, nil
}

type CommentRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewCommentRepository(db *gorm.DB, log logger.Interface) *CommentRepository {
	return &CommentRepository{db: db, logger: log}
}

func (r *CommentRepository) Add(ctx context.Context, c *finding.Comment) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.CommentToModel(c)).Error; err != nil {
		r.logger.Errorw("failed to add comment", "finding_id", c.FindingID, "error", err)
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) ListByFinding(ctx context.Context, findingID string) ([]*finding.Comment, error) {
	var list []models.CommentModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("finding_id = ?", findingID).
		Order("created_at, id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	out := make([]*finding.Comment, 0, len(list))
	for i := range list {
		out = append(out, mappers.CommentToDomain(&list[i]))
	}
	return out, nil
}
