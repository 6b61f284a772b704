package repository

import (
	"context"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/google/uuid"
)

type RoomRepository interface {
	// CreateIfAbsent inserts room unless the code is taken and reports
	// whether this call created it.
	CreateIfAbsent(ctx context.Context, room *domain.Room) (bool, error)
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	// LockByCode reads the room with a row lock. Only meaningful inside a
	// transaction.
	LockByCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	// CompareAndSetPhase moves the room from -> to only if it is still in
	// from, reporting whether the row changed.
	CompareAndSetPhase(ctx context.Context, code string, from, to domain.Phase) (bool, error)
	SetHost(ctx context.Context, code, nickname string) error
	Delete(ctx context.Context, code string) error
	ListEmpty(ctx context.Context, olderThan time.Time) ([]string, error)
	ListCodes(ctx context.Context) ([]string, error)
}

type PlayerRepository interface {
	Create(ctx context.Context, player *domain.Player) error
	GetByRoomAndNickname(ctx context.Context, code, nickname string) (*domain.Player, error)
	// GetByRoomCode returns players in join order.
	GetByRoomCode(ctx context.Context, code string) ([]*domain.Player, error)
	Update(ctx context.Context, player *domain.Player) error
	// UpdateAll applies column updates to every player of the room, or only
	// to living ones when aliveOnly is set.
	UpdateAll(ctx context.Context, code string, aliveOnly bool, updates map[string]interface{}) error
	SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error
	Delete(ctx context.Context, code, nickname string) error
	DeleteByRoomCode(ctx context.Context, code string) error
	CountByRoomCode(ctx context.Context, code string) (int64, error)
}

type RoundRepository interface {
	Create(ctx context.Context, round *domain.Round) error
	GetLatest(ctx context.Context, code string) (*domain.Round, error)
	LockLatest(ctx context.Context, code string) (*domain.Round, error)
	Update(ctx context.Context, round *domain.Round) error
	// SetDrawStartIfUnset writes ts only when no start is recorded yet.
	SetDrawStartIfUnset(ctx context.Context, id uuid.UUID, ts time.Time) (bool, error)
	DeleteByRoomCode(ctx context.Context, code string) error
}

type VoteRepository interface {
	Upsert(ctx context.Context, vote *domain.Vote) error
	GetByRound(ctx context.Context, roundID uuid.UUID) ([]*domain.Vote, error)
	GetByRoundAndVoter(ctx context.Context, roundID uuid.UUID, nickname string) (*domain.Vote, error)
	DeleteByRound(ctx context.Context, roundID uuid.UUID) error
	DeleteByRoomCode(ctx context.Context, code string) error
}

type AccusationRepository interface {
	Create(ctx context.Context, accusation *domain.Accusation) error
	GetByRoomCode(ctx context.Context, code string) ([]*domain.Accusation, error)
	DeleteByRoomCode(ctx context.Context, code string) error
}

type DrawingRepository interface {
	Upsert(ctx context.Context, drawing *domain.Drawing) error
	GetByRoomCode(ctx context.Context, code string) ([]*domain.Drawing, error)
	ListNicknames(ctx context.Context, code string) ([]string, error)
	DeleteByRoomCode(ctx context.Context, code string) error
}

type WordPairRepository interface {
	UpsertMany(ctx context.Context, pairs []*domain.WordPair) error
	GetByTheme(ctx context.Context, theme string) ([]*domain.WordPair, error)
	ListThemes(ctx context.Context) ([]domain.ThemeCount, error)
	Count(ctx context.Context) (int64, error)
}

// EventPublisher announces that a room changed. Inside a transaction the
// announcement is delivered only on commit.
type EventPublisher interface {
	RoomChanged(ctx context.Context, code string) error
}

// Transactor runs fn with repositories bound to a single transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

type Repositories struct {
	Room       RoomRepository
	Player     PlayerRepository
	Round      RoundRepository
	Vote       VoteRepository
	Accusation AccusationRepository
	Drawing    DrawingRepository
	WordPair   WordPairRepository
	Events     EventPublisher
	Tx         Transactor
}
