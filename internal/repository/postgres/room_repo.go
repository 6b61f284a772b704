package postgres

import (
	"context"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) CreateIfAbsent(ctx context.Context, room *domain.Room) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(room)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *roomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) LockByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) Update(ctx context.Context, room *domain.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepository) CompareAndSetPhase(ctx context.Context, code string, from, to domain.Phase) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("code = ? AND current_phase = ?", code, from).
		Update("current_phase", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *roomRepository) SetHost(ctx context.Context, code, nickname string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("code = ?", code).
		Update("host_nickname", nickname).Error
}

func (r *roomRepository) Delete(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("code = ?", code).Delete(&domain.Room{}).Error
}

// ListEmpty finds rooms with no players that have been idle since olderThan.
func (r *roomRepository) ListEmpty(ctx context.Context, olderThan time.Time) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("updated_at < ?", olderThan).
		Where("NOT EXISTS (SELECT 1 FROM players WHERE players.room_code = rooms.code)").
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *roomRepository) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Order("code").Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
