package postgres

import (
	"context"

	"github.com/dom/outsider-party/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type wordPairRepository struct {
	db *gorm.DB
}

func NewWordPairRepository(db *gorm.DB) *wordPairRepository {
	return &wordPairRepository{db: db}
}

// UpsertMany inserts pairs, skipping ones already in the catalog.
func (r *wordPairRepository) UpsertMany(ctx context.Context, pairs []*domain.WordPair) error {
	if len(pairs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "theme"}, {Name: "civilian_word"}, {Name: "outsider_word"}},
			DoNothing: true,
		}).
		CreateInBatches(pairs, 100).Error
}

func (r *wordPairRepository) GetByTheme(ctx context.Context, theme string) ([]*domain.WordPair, error) {
	var pairs []*domain.WordPair
	err := r.db.WithContext(ctx).
		Where("theme = ?", theme).
		Order("civilian_word").
		Find(&pairs).Error
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (r *wordPairRepository) ListThemes(ctx context.Context) ([]domain.ThemeCount, error) {
	var themes []domain.ThemeCount
	err := r.db.WithContext(ctx).
		Model(&domain.WordPair{}).
		Select("theme, count(*) AS pairs").
		Group("theme").
		Order("theme").
		Scan(&themes).Error
	if err != nil {
		return nil, err
	}
	return themes, nil
}

func (r *wordPairRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WordPair{}).Count(&count).Error
	return count, err
}
