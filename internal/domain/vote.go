package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one player's ballot in a round. A retry from the same voter
// overwrites the earlier row.
type Vote struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode       string    `json:"roomCode" gorm:"size:8;not null;index"`
	RoundID        uuid.UUID `json:"roundId" gorm:"type:uuid;not null;uniqueIndex:idx_votes_round_voter"`
	VoterNickname  string    `json:"voterNickname" gorm:"size:32;not null;uniqueIndex:idx_votes_round_voter"`
	TargetPlayerID uuid.UUID `json:"targetPlayerId" gorm:"type:uuid;not null"`
	Weight         int       `json:"weight" gorm:"not null;default:1"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Vote) TableName() string {
	return "votes"
}

// Accusation is a once-per-game named guess at the Chameleon. It counts as
// the accuser's ballot for the vote it was made in; a revote opens a fresh
// ballot.
type Accusation struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode        string    `json:"roomCode" gorm:"size:8;not null;uniqueIndex:idx_accusations_room_accuser"`
	AccuserNickname string    `json:"accuserNickname" gorm:"size:32;not null;uniqueIndex:idx_accusations_room_accuser"`
	TargetPlayerID  uuid.UUID `json:"targetPlayerId" gorm:"type:uuid;not null"`
	RoundID         uuid.UUID `json:"roundId" gorm:"type:uuid;not null;index"`
	RevoteIndex     int       `json:"revoteIndex" gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (Accusation) TableName() string {
	return "chameleon_accusations"
}

// AccusedTargets indexes which players have been named by any accusation.
func AccusedTargets(accusations []*Accusation) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(accusations))
	for _, a := range accusations {
		out[a.TargetPlayerID] = true
	}
	return out
}

// InBallot reports whether the accusation was made during the round's
// current vote.
func (a *Accusation) InBallot(round *Round) bool {
	return round != nil && a.RoundID == round.ID && a.RevoteIndex == round.RevoteCount
}

// CountedVotes keeps the votes cast by and for players still in the set.
// A vote naming someone who has left no longer counts, and neither does one
// left behind by a departed voter.
func CountedVotes(votes []*Vote, players []*Player) []*Vote {
	out := make([]*Vote, 0, len(votes))
	for _, v := range votes {
		if FindPlayerByID(players, v.TargetPlayerID) == nil {
			continue
		}
		for _, p := range players {
			if p.Nickname == v.VoterNickname {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Ballots returns the nicknames of living players who have voted or accused
// in the round's current vote.
func Ballots(round *Round, votes []*Vote, accusations []*Accusation, alive []*Player) map[string]bool {
	living := make(map[string]bool, len(alive))
	for _, p := range alive {
		living[p.Nickname] = true
	}
	cast := make(map[string]bool, len(alive))
	for _, v := range CountedVotes(votes, alive) {
		if v.RoundID == round.ID {
			cast[v.VoterNickname] = true
		}
	}
	for _, a := range accusations {
		if living[a.AccuserNickname] && a.InBallot(round) {
			cast[a.AccuserNickname] = true
		}
	}
	return cast
}
