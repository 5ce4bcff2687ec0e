package models

import (
	"time"

	"gorm.io/datatypes"

	"vulntrack/internal/shared/constants"
)

// PolicyModel is one grant, keyed by (level, subject, object).
type PolicyModel struct {
	Level        string    `gorm:"primaryKey;size:16"`
	Subject      string    `gorm:"primaryKey;size:255"`
	Object       string    `gorm:"primaryKey;size:255"`
	Role         string    `gorm:"size:64;not null"`
	ModifiedBy   string    `gorm:"size:255;not null"`
	ModifiedDate time.Time `gorm:"not null"`
}

func (PolicyModel) TableName() string {
	return constants.TablePolicies
}

// GroupServicesModel stores a group's service list as a JSON array.
type GroupServicesModel struct {
	GroupName    string         `gorm:"primaryKey;size:255"`
	Services     datatypes.JSON `gorm:"not null"`
	ModifiedBy   string         `gorm:"size:255;not null"`
	ModifiedDate time.Time      `gorm:"not null"`
}

func (GroupServicesModel) TableName() string {
	return constants.TableGroupServices
}
