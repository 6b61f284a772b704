package postgres

import (
	"context"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the game, in migration order.
var Models = []interface{}{
	&domain.Room{},
	&domain.Player{},
	&domain.Round{},
	&domain.Vote{},
	&domain.Accusation{},
	&domain.Drawing{},
	&domain.WordPair{},
}

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Room:       NewRoomRepository(db),
		Player:     NewPlayerRepository(db),
		Round:      NewRoundRepository(db),
		Vote:       NewVoteRepository(db),
		Accusation: NewAccusationRepository(db),
		Drawing:    NewDrawingRepository(db),
		WordPair:   NewWordPairRepository(db),
		Events:     NewEventPublisher(db),
		Tx:         &transactor{db: db},
	}
}

type transactor struct {
	db *gorm.DB
}

// WithinTransaction nests as a savepoint when db is already a transaction.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
