package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	IssueStatusOpen       = "Open"
	IssueStatusInProgress = "In Progress"
	IssueStatusResolved   = "Resolved"
)

// IssueCategories lists the categories offered by the report form.
var IssueCategories = []string{
	"Garbage",
	"Illegal Construction",
	"Broken Public Property",
	"Road Damage",
	"Potholes",
	"Water Leak",
	"Other",
}

// Issue is a community-reported problem with an optional funding target.
// Version is bumped on every status change and guards concurrent transitions.
// ReconcileSeq is the ledger seq of the newest contribution whose automatic
// resolution check has not completed yet; zero means nothing is pending.
type Issue struct {
	ID            string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title" validate:"required,max=255"`
	Category      string    `gorm:"type:varchar(100);index;not null" json:"category" validate:"required,max=100"`
	Location      string    `gorm:"type:varchar(255);not null" json:"location" validate:"required,max=255"`
	Description   string    `gorm:"type:text;not null" json:"description" validate:"required"`
	ImageURL      string    `gorm:"type:varchar(2048)" json:"imageUrl" validate:"omitempty,max=2048"`
	TargetAmount  int64     `gorm:"not null;default:0" json:"targetAmount" validate:"gte=0"`
	Status        string    `gorm:"type:varchar(20);index;not null;default:'Open'" json:"status"`
	ReporterEmail string    `gorm:"type:varchar(255);index;not null" json:"reporterEmail" validate:"required,email"`
	ReporterName  string    `gorm:"type:varchar(255)" json:"reporterName"`
	Version       uint      `gorm:"not null;default:1" json:"-"`
	ReconcileSeq  int64     `gorm:"not null;default:0;index" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for the Issue model
func (Issue) TableName() string {
	return "issues"
}

// BeforeCreate assigns the id and initial status of a new issue.
func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = IssueStatusOpen
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

func (i *Issue) Validate() error {
	v := validator.New()

	return v.Struct(i)
}

// IsValidIssueStatus reports whether s is one of the three lifecycle states.
func IsValidIssueStatus(s string) bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved:
		return true
	}
	return false
}

// NormalizeEmail trims and lower-cases an email address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
