// Package models contains the persistence rows for the salary service,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SalaryRow is the stored form of a salary or salary-story submission.
// Story columns are empty for plain salary rows; pros and cons are kept as
// JSON arrays.
type SalaryRow struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind             string    `gorm:"size:10;not null;index"`
	CompanyName      string    `gorm:"size:200;not null;index"`
	Designation      string    `gorm:"size:200;not null"`
	Location         string    `gorm:"size:120;not null;index"`
	Department       string    `gorm:"size:120;not null"`
	Experience       int       `gorm:"check:experience >= 0"`
	ExperienceLevel  string    `gorm:"size:20"`
	TotalMonthly     float64   `gorm:"check:total_monthly >= 0"`
	WhichYearsSalary int
	MinimumIncrement float64 `gorm:"check:minimum_increment >= 0"`
	YearsOfIncrement *int
	EmploymentType   string   `gorm:"size:20"`
	Gender           *string  `gorm:"size:20"`
	StoryTitle       string   `gorm:"size:200"`
	StoryDescription string   `gorm:"type:text"`
	Pros             []string `gorm:"serializer:json"`
	Cons             []string `gorm:"serializer:json"`
	IsAnonymous      bool
	IsVerified       bool
	ModerationState  string  `gorm:"size:10;not null;index;default:pending"`
	RejectionReason  *string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// TableName pins the table name independent of the struct name.
func (SalaryRow) TableName() string { return "salaries" }
