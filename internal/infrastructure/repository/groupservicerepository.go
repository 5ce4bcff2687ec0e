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

var _ authz.GroupServiceRepository = (*GroupServiceRepository)(nil)

type GroupServiceRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewGroupServiceRepository(db *gorm.DB, log logger.Interface) *GroupServiceRepository {
	return &GroupServiceRepository{db: db, logger: log}
}

func (r *GroupServiceRepository) Get(ctx context.Context, group string) (*authz.GroupServices, error) {
	var model models.GroupServicesModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("group_name = ?", authz.Normalize(group)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group services: %w", err)
	}
	return mappers.GroupServicesToDomain(&model)
}

func (r *GroupServiceRepository) Put(ctx context.Context, services *authz.GroupServices) error {
	model, err := mappers.GroupServicesToModel(services)
	if err != nil {
		return err
	}
	err = db.GetTxFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"services", "modified_by", "modified_date"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert group services", "group", model.GroupName, "error", err)
		return fmt.Errorf("failed to upsert group services: %w", err)
	}
	return nil
}
