package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Round struct {
	ID                     uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode               string         `json:"roomCode" gorm:"size:8;not null;uniqueIndex:idx_rounds_room_number"`
	Number                 int            `json:"number" gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	WordCivilian           string         `json:"-" gorm:"size:64;not null"`
	WordOutsider           string         `json:"-" gorm:"size:64;not null"`
	TimerSeconds           int            `json:"timerSeconds" gorm:"not null;default:60"`
	DrawStartsAt           *time.Time     `json:"drawStartsAt"`
	TiePlayerIDs           datatypes.JSON `json:"tiePlayerIds" gorm:"type:jsonb"`
	Resolution             ResolutionKind `json:"resolution" gorm:"size:24;not null;default:''"`
	EliminatedPlayerID     *uuid.UUID     `json:"eliminatedPlayerId" gorm:"type:uuid"`
	EliminatedWasChameleon bool           `json:"eliminatedWasChameleon" gorm:"not null;default:false"`
	ChameleonAccused       bool           `json:"chameleonAccused" gorm:"not null;default:false"`
	DictatorSurvived       bool           `json:"dictatorSurvived" gorm:"not null;default:false"`
	RevoteCount            int            `json:"revoteCount" gorm:"not null;default:0"`
	ResolvedAt             *time.Time     `json:"resolvedAt"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

func (Round) TableName() string {
	return "rounds"
}

func (r *Round) IsResolved() bool {
	return r.ResolvedAt != nil
}

// TieIDs decodes the stored tie list. A malformed column reads as no tie.
func (r *Round) TieIDs() []uuid.UUID {
	if len(r.TiePlayerIDs) == 0 {
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(r.TiePlayerIDs, &ids); err != nil {
		return nil
	}
	return ids
}

func (r *Round) SetTieIDs(ids []uuid.UUID) {
	if len(ids) == 0 {
		r.TiePlayerIDs = nil
		return
	}
	raw, _ := json.Marshal(ids)
	r.TiePlayerIDs = datatypes.JSON(raw)
}

// InTieList reports whether id may be targeted during a tie revote. With no
// active tie every player is eligible.
func (r *Round) InTieList(id uuid.UUID) bool {
	ids := r.TieIDs()
	if len(ids) == 0 {
		return true
	}
	for _, tied := range ids {
		if tied == id {
			return true
		}
	}
	return false
}

// WordFor returns the word dealt to a role this round.
func (r *Round) WordFor(role Role) string {
	if role.SeesOutsiderWord() {
		return r.WordOutsider
	}
	return r.WordCivilian
}

// DrawRemaining is timer minus time elapsed since DrawStartsAt, floored at
// zero. Before the start timestamp (or with none set) the full timer remains.
func (r *Round) DrawRemaining(now time.Time) time.Duration {
	total := time.Duration(r.TimerSeconds) * time.Second
	if r.DrawStartsAt == nil {
		return total
	}
	elapsed := now.Sub(*r.DrawStartsAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyOutcome writes a fresh resolution onto the round and stamps it
// resolved.
func (r *Round) ApplyOutcome(o VoteOutcome, now time.Time) {
	r.Resolution = o.Kind
	r.EliminatedPlayerID = o.EliminatedPlayerID
	r.EliminatedWasChameleon = o.WasChameleon
	r.ChameleonAccused = o.ChameleonAccused
	r.DictatorSurvived = o.DictatorSurvived
	if o.Kind == ResolutionTie {
		r.SetTieIDs(o.TiePlayerIDs)
	} else {
		r.SetTieIDs(nil)
	}
	r.ResolvedAt = &now
}

// ReopenForRevote clears the resolution marker. The tie list survives so the
// revote stays restricted to the tied players.
func (r *Round) ReopenForRevote() {
	r.Resolution = ResolutionNone
	r.EliminatedPlayerID = nil
	r.EliminatedWasChameleon = false
	r.ChameleonAccused = false
	r.ResolvedAt = nil
	r.RevoteCount++
}

// StoredOutcome rebuilds the outcome persisted by ApplyOutcome.
func (r *Round) StoredOutcome() VoteOutcome {
	o := VoteOutcome{
		Kind:               r.Resolution,
		EliminatedPlayerID: r.EliminatedPlayerID,
		WasChameleon:       r.EliminatedWasChameleon,
		ChameleonAccused:   r.ChameleonAccused,
		ChameleonWins:      r.EliminatedWasChameleon && !r.ChameleonAccused,
		DictatorSurvived:   r.DictatorSurvived,
		TiePlayerIDs:       r.TieIDs(),
	}
	return o
}
