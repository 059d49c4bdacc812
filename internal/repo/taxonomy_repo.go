// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for taxonomy terms.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// ListTopLevelTerms returns the non-deleted first-level terms of vocabulary
// in tree order: weight, then name.
func ListTopLevelTerms(ctx context.Context, db *gorm.DB, vocabulary string) ([]domain.TaxonomyTerm, error) {
	var out []domain.TaxonomyTerm
	err := db.WithContext(ctx).
		Where("vocabulary = ? AND parent_id IS NULL", vocabulary).
		Order("weight asc").
		Order("name asc").
		Find(&out).Error
	return out, err
}

// GetTopLevelTerm fetches a non-deleted first-level term of vocabulary by id.
func GetTopLevelTerm(ctx context.Context, db *gorm.DB, vocabulary, id string) (*domain.TaxonomyTerm, error) {
	var t domain.TaxonomyTerm
	err := db.WithContext(ctx).
		Where("id = ? AND vocabulary = ? AND parent_id IS NULL", id, vocabulary).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTerm inserts a term with a fresh UUID.
func CreateTerm(ctx context.Context, db *gorm.DB, vocabulary string, parentID *string, name string, weight int) (*domain.TaxonomyTerm, error) {
	now := time.Now().UTC()
	t := &domain.TaxonomyTerm{
		ID:         uuid.NewString(),
		Vocabulary: vocabulary,
		ParentID:   parentID,
		Name:       name,
		Weight:     weight,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// CountTerms returns the number of non-deleted terms in vocabulary.
func CountTerms(ctx context.Context, db *gorm.DB, vocabulary string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.TaxonomyTerm{}).
		Where("vocabulary = ?", vocabulary).
		Count(&n).Error
	return n, err
}
