package domain

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// FallbackWordPair is dealt when the catalog has nothing at all.
var FallbackWordPair = WordPair{Theme: DefaultWordTheme, CivilianWord: "cat", OutsiderWord: "dog"}

type WordPair struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Theme        string    `json:"theme" gorm:"size:64;not null;index;uniqueIndex:idx_word_pairs_unique"`
	CivilianWord string    `json:"civilianWord" gorm:"size:64;not null;uniqueIndex:idx_word_pairs_unique"`
	OutsiderWord string    `json:"outsiderWord" gorm:"size:64;not null;uniqueIndex:idx_word_pairs_unique"`
}

func (WordPair) TableName() string {
	return "word_pairs"
}

// ThemeCount summarizes one catalog theme.
type ThemeCount struct {
	Theme string `json:"theme"`
	Pairs int    `json:"pairs"`
}

// PickWordPair chooses uniformly from themed, then from fallback, then
// returns FallbackWordPair.
func PickWordPair(rng *rand.Rand, themed, fallback []*WordPair) WordPair {
	if len(themed) > 0 {
		return *themed[rng.IntN(len(themed))]
	}
	if len(fallback) > 0 {
		return *fallback[rng.IntN(len(fallback))]
	}
	return FallbackWordPair
}
