package models

import (
	"time"

	"vulntrack/internal/shared/constants"
)

type OrganizationModel struct {
	ID                             string `gorm:"primaryKey;size:64"`
	Name                           string `gorm:"uniqueIndex;size:255;not null"`
	MaxAcceptanceDays              *int
	MinAcceptanceSeverity          *float64
	MaxAcceptanceSeverity          *float64
	MaxNumberAcceptances           *int
	NumberAcceptancesEffectiveDate *time.Time
	PoliciesModifiedBy             string `gorm:"size:255;not null"`
	PoliciesModifiedDate           *time.Time
	CreatedAt                      time.Time `gorm:"not null"`
}

func (OrganizationModel) TableName() string {
	return constants.TableOrganizations
}

type GroupModel struct {
	Name           string    `gorm:"primaryKey;size:255"`
	OrganizationID string    `gorm:"size:64;not null;index"`
	Decommissioned bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (GroupModel) TableName() string {
	return constants.TableGroups
}
