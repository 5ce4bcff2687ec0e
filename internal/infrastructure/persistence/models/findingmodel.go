package models

import (
	"time"

	"vulntrack/internal/shared/constants"
)

type FindingModel struct {
	ID             string    `gorm:"primaryKey;size:64"`
	GroupName      string    `gorm:"size:255;not null;index"`
	Title          string    `gorm:"size:255;not null"`
	Description    string    `gorm:"type:text;not null"`
	Threat         string    `gorm:"type:text;not null"`
	Recommendation string    `gorm:"type:text;not null"`
	Severity       float64   `gorm:"not null"`
	Status         string    `gorm:"size:16;not null"`
	ModifiedBy     string    `gorm:"size:255;not null"`
	ModifiedDate   time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (FindingModel) TableName() string {
	return constants.TableFindings
}

type CommentModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	FindingID string    `gorm:"size:64;not null;index"`
	Type      string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text;not null"`
	Email     string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CommentModel) TableName() string {
	return constants.TableFindingComments
}
