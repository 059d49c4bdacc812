// Package services – TaxonomyService
//
// This file exposes taxonomy vocabularies as select options for the contact
// log forms and seeds the default type_of_contact terms on first start.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// TermRepo defines the repository contract required by TaxonomyService.
type TermRepo interface {
	// ListTopLevelTerms returns first-level, non-deleted terms ordered by
	// weight then name.
	ListTopLevelTerms(ctx context.Context, db *gorm.DB, vocabulary string) ([]domain.TaxonomyTerm, error)

	// CountTerms returns the number of non-deleted terms in vocabulary.
	CountTerms(ctx context.Context, db *gorm.DB, vocabulary string) (int64, error)

	// CreateTerm inserts a term.
	CreateTerm(ctx context.Context, db *gorm.DB, vocabulary string, parentID *string, name string, weight int) (*domain.TaxonomyTerm, error)
}

// TermOption is one entry of a select list.
type TermOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultContactTypes are seeded into an empty type_of_contact vocabulary.
var DefaultContactTypes = []string{"Phone", "Email", "Face to face", "Other"}

// ErrUnknownVocabulary is returned for a blank vocabulary name.
var ErrUnknownVocabulary = errors.New("vocabulary is required")

// TaxonomyService reads and seeds taxonomy vocabularies.
type TaxonomyService struct {
	DB   *gorm.DB
	Repo TermRepo
}

// NewTaxonomyService constructs a TaxonomyService.
func NewTaxonomyService(db *gorm.DB, r TermRepo) *TaxonomyService {
	return &TaxonomyService{DB: db, Repo: r}
}

// LookupTaxonomyOptions returns the first-level terms of vocabulary in tree
// order. It returns an empty slice, not nil, when the vocabulary has none.
func (s *TaxonomyService) LookupTaxonomyOptions(ctx context.Context, vocabulary string) ([]TermOption, error) {
	vocabulary = strings.TrimSpace(vocabulary)
	if vocabulary == "" {
		return nil, ErrUnknownVocabulary
	}
	terms, err := s.Repo.ListTopLevelTerms(ctx, s.DB, vocabulary)
	if err != nil {
		return nil, err
	}
	out := make([]TermOption, 0, len(terms))
	for _, t := range terms {
		out = append(out, TermOption{ID: t.ID, Label: t.Name})
	}
	return out, nil
}

// SeedDefaults fills an empty vocabulary with names, weighted in the given
// order. It does nothing when the vocabulary already has terms and reports
// how many terms it created.
func (s *TaxonomyService) SeedDefaults(ctx context.Context, vocabulary string, names []string) (int, error) {
	n, err := s.Repo.CountTerms(ctx, s.DB, vocabulary)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, name := range names {
			if _, err := s.Repo.CreateTerm(ctx, tx, vocabulary, nil, name, i); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
