// Package domain defines the persistence models for contact logs and the
// taxonomy terms they reference. These types are mapped with GORM and form
// the core data layer of the contact log service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// AdverseEvent is the "adverse event identified" flag of a contact log.
type AdverseEvent string

const (
	AdverseEventYes AdverseEvent = "Yes"
	AdverseEventNo  AdverseEvent = "No"
)

// AdverseEventOptions lists the allowed values in display order.
var AdverseEventOptions = []AdverseEvent{AdverseEventYes, AdverseEventNo}

// Valid reports whether a is one of the allowed values.
func (a AdverseEvent) Valid() bool {
	return a == AdverseEventYes || a == AdverseEventNo
}

// VocabularyTypeOfContact is the taxonomy vocabulary backing ContactLog.TypeOfContactID.
const VocabularyTypeOfContact = "type_of_contact"

// ContactLog is a single recorded contact with a patient or their carer.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), immutable.
//   - UserID / AuthorName: who created the entry; AuthorName is denormalized
//     so historical entries keep the name they were recorded under.
//   - CreatedAt: request time at creation, never updated afterwards.
//   - ContactDate: user-entered date, always stored as dd/mm/yyyy.
//   - TypeOfContactID: taxonomy term in the type_of_contact vocabulary.
//   - DeletedAt / DeletedBy: soft deletion marker. Soft-deleted rows are
//     hidden from every scoped query but stay in the table for reporting.
type ContactLog struct {
	ID                     string         `json:"id"                       gorm:"type:char(36);primaryKey"`
	UserID                 string         `json:"user_id"                  gorm:"type:varchar(64);not null;index:idx_contact_logs_user"`
	AuthorName             string         `json:"author_name"              gorm:"type:varchar(255);not null;default:''"`
	ContactDate            string         `json:"contact_date"             gorm:"type:varchar(10);not null"`
	TypeOfContactID        string         `json:"type_of_contact_id"       gorm:"type:char(36);not null;index"`
	ContactName            string         `json:"contact_name"             gorm:"type:varchar(50);not null"`
	ContactNote            string         `json:"contact_note"             gorm:"type:text;not null"`
	AdverseEventIdentified AdverseEvent   `json:"adverse_event_identified" gorm:"type:varchar(3);not null;check:adverse_event_identified IN ('Yes','No')"`
	AEReceiptNo            string         `json:"ae_receipt_no"            gorm:"type:varchar(50);not null;default:''"`
	CreatedAt              time.Time      `json:"created_at"               gorm:"index"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `json:"-"                        gorm:"index"`
	DeletedBy              *string        `json:"-"                        gorm:"type:varchar(64)"`

	// TypeOfContact is the referenced term, loaded on demand.
	TypeOfContact *TaxonomyTerm `json:"type_of_contact,omitempty" gorm:"foreignKey:TypeOfContactID;references:ID"`
}

// TableName returns the database table name for ContactLog.
func (ContactLog) TableName() string { return "contact_logs" }

// IsDeleted reports whether the entry has been soft-deleted.
func (c *ContactLog) IsDeleted() bool { return c.DeletedAt.Valid }

// TaxonomyTerm is one term of a named vocabulary. Terms form a tree through
// ParentID; a nil ParentID marks a first-level term.
type TaxonomyTerm struct {
	ID         string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Vocabulary string         `json:"vocabulary" gorm:"type:varchar(64);not null;index:idx_terms_vocab_weight,priority:1"`
	ParentID   *string        `json:"parent_id,omitempty" gorm:"type:char(36);index"`
	Name       string         `json:"name"       gorm:"type:varchar(255);not null"`
	Weight     int            `json:"weight"     gorm:"not null;default:0;index:idx_terms_vocab_weight,priority:2"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for TaxonomyTerm.
func (TaxonomyTerm) TableName() string { return "taxonomy_terms" }
