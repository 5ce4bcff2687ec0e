package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/infrastructure/persistence/mappers"
	"vulntrack/internal/infrastructure/persistence/models"
	"vulntrack/internal/shared/db"
	"vulntrack/internal/shared/logger"
)

// MaskedValue replaces every masked location and justification.
const MaskedValue = "Masked"

var _ vulnerability.Repository = (*VulnerabilityRepository)(nil)

type VulnerabilityRepository struct {
	db     *gorm.DB
	mapper mappers.VulnerabilityMapper
	logger logger.Interface
}

func NewVulnerabilityRepository(db *gorm.DB, log logger.Interface) *VulnerabilityRepository {
	return &VulnerabilityRepository{
		db:     db,
		mapper: mappers.NewVulnerabilityMapper(),
		logger: log,
	}
}

func (r *VulnerabilityRepository) Get(ctx context.Context, id string) (*vulnerability.Vulnerability, error) {
	var model models.VulnerabilityModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vulnerability: %w", err)
	}
	list, err := r.hydrate(ctx, []models.VulnerabilityModel{model})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// Create inserts the vulnerability row and its initial history.
func (r *VulnerabilityRepository) Create(ctx context.Context, v *vulnerability.Vulnerability) error {
	model, err := r.mapper.ToModel(v)
	if err != nil {
		return err
	}
	rows, err := r.mapper.PendingToRows(v)
	if err != nil {
		return err
	}

	err = db.GetTxFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create vulnerability: %w", err)
		}
		return insertHistory(tx, rows)
	})
	if err != nil {
		r.logger.Errorw("failed to create vulnerability", "vulnerability_id", v.ID(), "error", err)
		return err
	}
	v.MarkCommitted()
	return nil
}

// Save appends the aggregate's pending history entries. Existing rows are
// never rewritten.
func (r *VulnerabilityRepository) Save(ctx context.Context, v *vulnerability.Vulnerability) error {
	if v.Pending().IsEmpty() {
		return nil
	}
	rows, err := r.mapper.PendingToRows(v)
	if err != nil {
		return err
	}

	err = db.GetTxFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return insertHistory(tx, rows)
	})
	if err != nil {
		r.logger.Errorw("failed to append vulnerability history", "vulnerability_id", v.ID(), "error", err)
		return err
	}
	v.MarkCommitted()
	return nil
}

func insertHistory(tx *gorm.DB, rows mappers.VulnerabilityRows) error {
	if len(rows.States) > 0 {
		if err := tx.Create(&rows.States).Error; err != nil {
			return fmt.Errorf("failed to insert states: %w", err)
		}
	}
	if len(rows.Treatments) > 0 {
		if err := tx.Create(&rows.Treatments).Error; err != nil {
			return fmt.Errorf("failed to insert treatments: %w", err)
		}
	}
	if len(rows.Verifications) > 0 {
		if err := tx.Create(&rows.Verifications).Error; err != nil {
			return fmt.Errorf("failed to insert verifications: %w", err)
		}
	}
	if len(rows.ZeroRisks) > 0 {
		if err := tx.Create(&rows.ZeroRisks).Error; err != nil {
			return fmt.Errorf("failed to insert zero risk entries: %w", err)
		}
	}
	return nil
}

func (r *VulnerabilityRepository) ListByFinding(ctx context.Context, findingID string) ([]*vulnerability.Vulnerability, error) {
	var list []models.VulnerabilityModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("finding_id = ?", findingID).
		Order("created_at, id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities by finding: %w", err)
	}
	return r.hydrate(ctx, list)
}

func (r *VulnerabilityRepository) ListByRoot(ctx context.Context, groupName, root string) ([]*vulnerability.Vulnerability, error) {
	var list []models.VulnerabilityModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("group_name = ? AND root = ?", groupName, root).
		Order("created_at, id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities by root: %w", err)
	}
	return r.hydrate(ctx, list)
}

// ListExpiredAcceptances returns open vulnerabilities whose current
// treatment is a temporary acceptance that ended before now.
func (r *VulnerabilityRepository) ListExpiredAcceptances(ctx context.Context, now time.Time) ([]*vulnerability.Vulnerability, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	candidates := tx.Model(&models.TreatmentModel{}).
		Select("vulnerability_id").
		Where("status = ? AND accepted_until < ?", string(vulnerability.TreatmentAccepted), now.UTC())

	var list []models.VulnerabilityModel
	if err := tx.
		Where("id IN (?)", candidates).
		Order("created_at, id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired acceptances: %w", err)
	}

	vulns, err := r.hydrate(ctx, list)
	if err != nil {
		return nil, err
	}

	expired := vulns[:0]
	for _, v := range vulns {
		current := v.CurrentTreatment()
		if v.State() == vulnerability.StateOpen &&
			current.Status == vulnerability.TreatmentAccepted &&
			current.AcceptedUntil != nil &&
			current.AcceptedUntil.Before(now) {
			expired = append(expired, v)
		}
	}
	return expired, nil
}

func (r *VulnerabilityRepository) FindByHash(ctx context.Context, hash string) (*vulnerability.Vulnerability, error) {
	var model models.VulnerabilityModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("hash = ?", hash).
		Order("created_at, id").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vulnerability by hash: %w", err)
	}
	list, err := r.hydrate(ctx, []models.VulnerabilityModel{model})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// MaskByGroup overwrites locations, tags and justifications of every
// vulnerability in the group. It is the only rewrite of historic rows.
func (r *VulnerabilityRepository) MaskByGroup(ctx context.Context, groupName string) (int64, error) {
	var masked int64
	err := db.GetTxFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.VulnerabilityModel{}).Select("id").Where("group_name = ?", groupName)

		if err := tx.Model(&models.TreatmentModel{}).
			Where("vulnerability_id IN (?)", ids).
			Updates(map[string]interface{}{"justification": MaskedValue, "assigned": MaskedValue}).Error; err != nil {
			return fmt.Errorf("failed to mask treatments: %w", err)
		}
		if err := tx.Model(&models.StateModel{}).
			Where("vulnerability_id IN (?) AND justification <> ''", ids).
			Update("justification", MaskedValue).Error; err != nil {
			return fmt.Errorf("failed to mask states: %w", err)
		}

		findings := tx.Model(&models.FindingModel{}).Select("id").Where("group_name = ?", groupName)
		if err := tx.Model(&models.CommentModel{}).
			Where("finding_id IN (?)", findings).
			Update("content", MaskedValue).Error; err != nil {
			return fmt.Errorf("failed to mask comments: %w", err)
		}

		result := tx.Model(&models.VulnerabilityModel{}).
			Where("group_name = ?", groupName).
			Updates(map[string]interface{}{
				"location":     MaskedValue,
				"specific_ref": MaskedValue,
				"tags":         datatypes.JSON("[]"),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mask vulnerabilities: %w", result.Error)
		}
		masked = result.RowsAffected
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to mask group", "group", groupName, "error", err)
		return 0, err
	}
	return masked, nil
}

// hydrate loads the histories of every model with one query per table.
func (r *VulnerabilityRepository) hydrate(ctx context.Context, list []models.VulnerabilityModel) ([]*vulnerability.Vulnerability, error) {
	if len(list) == 0 {
		return []*vulnerability.Vulnerability{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}

	tx := db.GetTxFromContext(ctx, r.db)

	var states []models.StateModel
	if err := tx.Where("vulnerability_id IN ?", ids).Order("vulnerability_id, position, modified_date").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("failed to load states: %w", err)
	}
	var treatments []models.TreatmentModel
	if err := tx.Where("vulnerability_id IN ?", ids).Order("vulnerability_id, position, modified_date").Find(&treatments).Error; err != nil {
		return nil, fmt.Errorf("failed to load treatments: %w", err)
	}
	var verifications []models.VerificationModel
	if err := tx.Where("vulnerability_id IN ?", ids).Order("vulnerability_id, position, modified_date").Find(&verifications).Error; err != nil {
		return nil, fmt.Errorf("failed to load verifications: %w", err)
	}
	var zeroRisks []models.ZeroRiskModel
	if err := tx.Where("vulnerability_id IN ?", ids).Order("vulnerability_id, position, modified_date").Find(&zeroRisks).Error; err != nil {
		return nil, fmt.Errorf("failed to load zero risk entries: %w", err)
	}

	rows := make(map[string]*mappers.VulnerabilityRows, len(list))
	for i := range list {
		rows[list[i].ID] = &mappers.VulnerabilityRows{Vulnerability: &list[i]}
	}
	for _, s := range states {
		rows[s.VulnerabilityID].States = append(rows[s.VulnerabilityID].States, s)
	}
	for _, t := range treatments {
		rows[t.VulnerabilityID].Treatments = append(rows[t.VulnerabilityID].Treatments, t)
	}
	for _, v := range verifications {
		rows[v.VulnerabilityID].Verifications = append(rows[v.VulnerabilityID].Verifications, v)
	}
	for _, z := range zeroRisks {
		rows[z.VulnerabilityID].ZeroRisks = append(rows[z.VulnerabilityID].ZeroRisks, z)
	}

	out := make([]*vulnerability.Vulnerability, 0, len(list))
	for _, m := range list {
		v, err := r.mapper.ToDomain(*rows[m.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
