package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxContributionAmount caps a single contribution so ledger sums stay within int64.
const MaxContributionAmount int64 = 1_000_000_000

// Contribution is an immutable ledger entry. Seq is the acceptance order within
// the issue and is assigned while the issue row is locked.
type Contribution struct {
	ID               string    `gorm:"primaryKey;type:char(36)" json:"id"`
	IssueID          string    `gorm:"type:char(36);not null;uniqueIndex:idx_contribution_issue_seq,priority:1" json:"issueId" validate:"required"`
	Seq              int64     `gorm:"not null;uniqueIndex:idx_contribution_issue_seq,priority:2" json:"-"`
	IssueTitle       string    `gorm:"type:varchar(255)" json:"issueTitle"`
	ContributorEmail string    `gorm:"type:varchar(255);index;not null" json:"contributorEmail" validate:"required,email"`
	ContributorName  string    `gorm:"type:varchar(255)" json:"contributorName"`
	ContributorPhoto string    `gorm:"type:varchar(2048)" json:"contributorPhoto"`
	Amount           int64     `gorm:"not null" json:"amount" validate:"gt=0"`
	Message          string    `gorm:"type:text" json:"message" validate:"max=1000"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName specifies the table name for the Contribution model
func (Contribution) TableName() string {
	return "contributions"
}

func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (c *Contribution) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
