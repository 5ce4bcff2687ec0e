package models

import (
	"time"

	"gorm.io/datatypes"

	"vulntrack/internal/shared/constants"
)

// VulnerabilityModel holds the immutable part of a vulnerability. Its
// histories live in append-only tables ordered by position.
type VulnerabilityModel struct {
	ID        string         `gorm:"primaryKey;size:64"`
	FindingID string         `gorm:"size:64;not null;index"`
	GroupName string         `gorm:"size:255;not null"`
	Root      string         `gorm:"size:255;not null"`
	Type      string         `gorm:"size:16;not null"`
	Location  string         `gorm:"type:text;not null"`
	Specific  string         `gorm:"column:specific_ref;type:text;not null"`
	Hash      string         `gorm:"size:64;not null;index"`
	Tags      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (VulnerabilityModel) TableName() string {
	return constants.TableVulnerabilities
}

type StateModel struct {
	ID              string    `gorm:"primaryKey;size:64"`
	VulnerabilityID string    `gorm:"size:64;not null"`
	Position        int       `gorm:"not null"`
	Status          string    `gorm:"size:16;not null"`
	Source          string    `gorm:"size:16;not null"`
	Justification   string    `gorm:"type:text;not null"`
	ModifiedBy      string    `gorm:"size:255;not null"`
	ModifiedDate    time.Time `gorm:"not null"`
}

func (StateModel) TableName() string {
	return constants.TableVulnerabilityStates
}

type TreatmentModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	VulnerabilityID  string `gorm:"size:64;not null"`
	Position         int    `gorm:"not null"`
	Status           string `gorm:"size:32;not null"`
	AcceptanceStatus string `gorm:"size:16;not null"`
	AcceptedUntil    *time.Time
	Justification    string    `gorm:"type:text;not null"`
	Assigned         string    `gorm:"size:255;not null"`
	ModifiedBy       string    `gorm:"size:255;not null"`
	ModifiedDate     time.Time `gorm:"not null"`
}

func (TreatmentModel) TableName() string {
	return constants.TableVulnerabilityTreatment
}

type VerificationModel struct {
	ID               string         `gorm:"primaryKey;size:64"`
	VulnerabilityID  string         `gorm:"size:64;not null"`
	Position         int            `gorm:"not null"`
	Status           string         `gorm:"size:16;not null"`
	VulnerabilityIDs datatypes.JSON `gorm:"type:json"`
	ModifiedBy       string         `gorm:"size:255;not null"`
	ModifiedDate     time.Time      `gorm:"not null"`
}

func (VerificationModel) TableName() string {
	return constants.TableVulnerabilityVerify
}

type ZeroRiskModel struct {
	ID              string    `gorm:"primaryKey;size:64"`
	VulnerabilityID string    `gorm:"size:64;not null"`
	Position        int       `gorm:"not null"`
	Status          string    `gorm:"size:16;not null"`
	CommentID       string    `gorm:"size:64;not null"`
	ModifiedBy      string    `gorm:"size:255;not null"`
	ModifiedDate    time.Time `gorm:"not null"`
}

func (ZeroRiskModel) TableName() string {
	return constants.TableVulnerabilityZeroRisk
}
