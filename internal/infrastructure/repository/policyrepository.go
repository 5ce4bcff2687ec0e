package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/infrastructure/persistence/mappers"
	"vulntrack/internal/infrastructure/persistence/models"
	"vulntrack/internal/shared/db"
	"vulntrack/internal/shared/logger"
)

var _ authz.PolicyRepository = (*PolicyRepository)(nil)

type PolicyRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPolicyRepository(db *gorm.DB, log logger.Interface) *PolicyRepository {
	return &PolicyRepository{db: db, logger: log}
}

func (r *PolicyRepository) Get(ctx context.Context, level authz.Level, subject, object string) (*authz.Policy, error) {
	var model models.PolicyModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("level = ? AND subject = ? AND object = ?", string(level), authz.Normalize(subject), authz.Normalize(object)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return mappers.PolicyToDomain(&model), nil
}

func (r *PolicyRepository) ListBySubject(ctx context.Context, subject string) ([]*authz.Policy, error) {
	var list []models.PolicyModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("subject = ?", authz.Normalize(subject)).
		Order("level, object").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list policies by subject: %w", err)
	}
	return mappers.PoliciesToDomain(list), nil
}

func (r *PolicyRepository) ListByObject(ctx context.Context, level authz.Level, object string) ([]*authz.Policy, error) {
	var list []models.PolicyModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("level = ? AND object = ?", string(level), authz.Normalize(object)).
		Order("subject").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list policies by object: %w", err)
	}
	return mappers.PoliciesToDomain(list), nil
}

// Put inserts the policy or replaces the role of an existing one.
func (r *PolicyRepository) Put(ctx context.Context, policy *authz.Policy) error {
	model := mappers.PolicyToModel(policy)
	err := db.GetTxFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}, {Name: "subject"}, {Name: "object"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "modified_by", "modified_date"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert policy",
			"level", model.Level,
			"subject", model.Subject,
			"object", model.Object,
			"error", err,
		)
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	return nil
}

// Delete removes the policy. Deleting a missing policy succeeds.
func (r *PolicyRepository) Delete(ctx context.Context, level authz.Level, subject, object string) error {
	err := db.GetTxFromContext(ctx, r.db).
		Where("level = ? AND subject = ? AND object = ?", string(level), authz.Normalize(subject), authz.Normalize(object)).
		Delete(&models.PolicyModel{}).Error
	if err != nil {
		r.logger.Errorw("failed to delete policy",
			"level", level,
			"subject", subject,
			"object", object,
			"error", err,
		)
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}
