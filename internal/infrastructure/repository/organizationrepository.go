package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vulntrack/internal/domain/organization"
	"vulntrack/internal/infrastructure/persistence/mappers"
	"vulntrack/internal/infrastructure/persistence/models"
	"vulntrack/internal/shared/db"
	"vulntrack/internal/shared/logger"
)

var (
	_ organization.Repository      = (*OrganizationRepository)(nil)
	_ organization.GroupRepository = (*GroupRepository)(nil)
)

type OrganizationRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewOrganizationRepository(db *gorm.DB, log logger.Interface) *OrganizationRepository {
	return &OrganizationRepository{db: db, logger: log}
}

func (r *OrganizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	var model models.OrganizationModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return mappers.OrganizationToDomain(&model), nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.OrganizationToModel(org)).Error; err != nil {
		r.logger.Errorw("failed to create organization", "id", org.ID(), "error", err)
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// UpdatePolicies writes only the policy columns.
func (r *OrganizationRepository) UpdatePolicies(ctx context.Context, org *organization.Organization) error {
	model := mappers.OrganizationToModel(org)
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.OrganizationModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"max_acceptance_days":               model.MaxAcceptanceDays,
			"min_acceptance_severity":           model.MinAcceptanceSeverity,
			"max_acceptance_severity":           model.MaxAcceptanceSeverity,
			"max_number_acceptances":            model.MaxNumberAcceptances,
			"number_acceptances_effective_date": model.NumberAcceptancesEffectiveDate,
			"policies_modified_by":              model.PoliciesModifiedBy,
			"policies_modified_date":            model.PoliciesModifiedDate,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update organization policies", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update organization policies: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrOrganizationNotFound
	}
	return nil
}

type GroupRepository struct {
	db     *gorm.DB
	logger logger.Interface
	now    func() time.Time
}

func NewGroupRepository(db *gorm.DB, log logger.Interface) *GroupRepository {
	return &GroupRepository{db: db, logger: log, now: time.Now}
}

func (r *GroupRepository) Get(ctx context.Context, name string) (*organization.Group, error) {
	var model models.GroupModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return mappers.GroupToDomain(&model), nil
}

func (r *GroupRepository) Create(ctx context.Context, group *organization.Group) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.GroupToModel(group, r.now())).Error; err != nil {
		r.logger.Errorw("failed to create group", "group", group.Name, "error", err)
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (r *GroupRepository) SetDecommissioned(ctx context.Context, name string) error {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.GroupModel{}).
		Where("name = ?", name).
		Update("decommissioned", true)
	if result.Error != nil {
		r.logger.Errorw("failed to decommission group", "group", name, "error", result.Error)
		return fmt.Errorf("failed to decommission group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrGroupNotFound
	}
	return nil
}
