package blacklist

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/perspectron/perspectron/pkg/domain/blacklist"
)

// Phrase is the persistence model for one blacklisted phrase.
type Phrase struct {
	Phrase    string `gorm:"primaryKey;column:phrase"`
	CreatedAt int64  `gorm:"autoCreateTime;column:created_at"`
}

func (Phrase) TableName() string {
	return "blacklist_phrases"
}

// GormStore persists the phrase set in postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Phrase{}); err != nil {
		return nil, fmt.Errorf("failed to migrate blacklist table: %w", err)
	}
	return &GormStore{db: db}, nil
}

var _ blacklist.Store = (*GormStore)(nil)

func (s *GormStore) Add(ctx context.Context, phrase string) (bool, error) {
	phrase = normalizePhrase(phrase)
	var existing Phrase
	err := s.db.WithContext(ctx).First(&existing, "phrase = ?", phrase).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up blacklist phrase: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&Phrase{Phrase: phrase}).Error; err != nil {
		return false, fmt.Errorf("failed to persist blacklist phrase: %w", err)
	}
	return true, nil
}

func (s *GormStore) Remove(ctx context.Context, phrase string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Phrase{}, "phrase = ?", normalizePhrase(phrase))
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete blacklist phrase: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var rows []Phrase
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list blacklist phrases: %w", err)
	}
	phrases := make([]string, 0, len(rows))
	for _, row := range rows {
		phrases = append(phrases, row.Phrase)
	}
	sort.Strings(phrases)
	return phrases, nil
}

func (s *GormStore) Matches(ctx context.Context, text string) ([]string, error) {
	phrases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return matchPhrases(text, phrases)
}
