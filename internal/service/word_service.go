package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/rs/zerolog/log"
)

//go:embed wordpairs.json
var wordCatalog []byte

type catalogEntry struct {
	Theme string      `json:"theme"`
	Pairs [][2]string `json:"pairs"`
}

type WordService struct {
	wordRepo repository.WordPairRepository

	mu  sync.Mutex
	rng *rand.Rand
}

func NewWordService(wordRepo repository.WordPairRepository) *WordService {
	return &WordService{
		wordRepo: wordRepo,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Catalog decodes the embedded word pair list.
func Catalog() ([]*domain.WordPair, error) {
	var entries []catalogEntry
	if err := json.Unmarshal(wordCatalog, &entries); err != nil {
		return nil, fmt.Errorf("decode word catalog: %w", err)
	}

	var pairs []*domain.WordPair
	for _, e := range entries {
		theme := domain.NormalizeTheme(e.Theme)
		for _, p := range e.Pairs {
			pairs = append(pairs, &domain.WordPair{
				Theme:        theme,
				CivilianWord: p[0],
				OutsiderWord: p[1],
			})
		}
	}
	return pairs, nil
}

// SeedCatalog loads the embedded catalog into the store. Pairs that already
// exist are left alone so reseeding is safe.
func (s *WordService) SeedCatalog(ctx context.Context) (int, error) {
	pairs, err := Catalog()
	if err != nil {
		return 0, err
	}
	if err := s.wordRepo.UpsertMany(ctx, pairs); err != nil {
		return 0, fmt.Errorf("seed word pairs: %w", err)
	}

	log.Info().Int("pairs", len(pairs)).Msg("word catalog seeded")
	return len(pairs), nil
}

func (s *WordService) Themes(ctx context.Context) ([]domain.ThemeCount, error) {
	return s.wordRepo.ListThemes(ctx)
}

// Pick draws a pair from theme, falling back to the default theme and then
// to the built-in pair. repo lets callers read through a transaction.
func (s *WordService) Pick(ctx context.Context, repo repository.WordPairRepository, theme string) (domain.WordPair, error) {
	if repo == nil {
		repo = s.wordRepo
	}
	theme = domain.NormalizeTheme(theme)

	themed, err := repo.GetByTheme(ctx, theme)
	if err != nil {
		return domain.WordPair{}, err
	}

	var fallback []*domain.WordPair
	if len(themed) == 0 && theme != domain.DefaultWordTheme {
		fallback, err = repo.GetByTheme(ctx, domain.DefaultWordTheme)
		if err != nil {
			return domain.WordPair{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PickWordPair(s.rng, themed, fallback), nil
}
