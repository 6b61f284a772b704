package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Tally maps target player ID to summed vote weight.
type Tally map[uuid.UUID]int

func TallyVotes(votes []*Vote) Tally {
	t := make(Tally, len(votes))
	for _, v := range votes {
		w := v.Weight
		if w <= 0 {
			w = 1
		}
		t[v.TargetPlayerID] += w
	}
	return t
}

func (t Tally) Max() int {
	max := 0
	for _, n := range t {
		if n > max {
			max = n
		}
	}
	return max
}

// Leaders returns every target sharing the maximum weight, sorted by ID so
// the result is stable.
func (t Tally) Leaders() []uuid.UUID {
	if len(t) == 0 {
		return nil
	}
	max := t.Max()
	var leaders []uuid.UUID
	for id, n := range t {
		if n == max {
			leaders = append(leaders, id)
		}
	}
	sort.Slice(leaders, func(i, j int) bool {
		return leaders[i].String() < leaders[j].String()
	})
	return leaders
}

// ByNickname re-keys the tally for display.
func (t Tally) ByNickname(players []*Player) map[string]int {
	out := make(map[string]int, len(t))
	for id, n := range t {
		if p := FindPlayerByID(players, id); p != nil {
			out[p.Nickname] = n
		}
	}
	return out
}

type ResolutionKind string

const (
	ResolutionNone             ResolutionKind = ""
	ResolutionNoVotes          ResolutionKind = "no_votes"
	ResolutionTie              ResolutionKind = "tie"
	ResolutionDictatorSurvived ResolutionKind = "dictator_survived"
	ResolutionEliminated       ResolutionKind = "eliminated"
)

type VoteOutcome struct {
	Kind               ResolutionKind `json:"kind"`
	EliminatedPlayerID *uuid.UUID     `json:"eliminatedPlayerId,omitempty"`
	EliminatedNickname string         `json:"eliminatedNickname,omitempty"`
	WasChameleon       bool           `json:"wasChameleon"`
	ChameleonAccused   bool           `json:"chameleonAccused"`
	ChameleonWins      bool           `json:"chameleonWins"`
	DictatorSurvived   bool           `json:"dictatorSurvived"`
	DictatorID         *uuid.UUID     `json:"dictatorId,omitempty"`
	TiePlayerIDs       []uuid.UUID    `json:"tiePlayerIds,omitempty"`
	AlreadyResolved    bool           `json:"alreadyResolved"`
}

// DecideOutcome turns a tally into a resolution without touching state.
// players must include every possible target; accused marks players named
// by any accusation this game.
func DecideOutcome(t Tally, players []*Player, accused map[uuid.UUID]bool) (VoteOutcome, error) {
	leaders := t.Leaders()
	switch {
	case len(leaders) == 0:
		return VoteOutcome{Kind: ResolutionNoVotes}, nil
	case len(leaders) > 1:
		return VoteOutcome{Kind: ResolutionTie, TiePlayerIDs: leaders}, nil
	}

	target := FindPlayerByID(players, leaders[0])
	if target == nil {
		return VoteOutcome{}, ErrTargetNotEligible
	}

	id := target.ID
	if target.Role == RoleDictator && !target.DictatorImmunityUsed {
		return VoteOutcome{Kind: ResolutionDictatorSurvived, DictatorSurvived: true, DictatorID: &id}, nil
	}

	o := VoteOutcome{
		Kind:               ResolutionEliminated,
		EliminatedPlayerID: &id,
		EliminatedNickname: target.Nickname,
		WasChameleon:       target.Role == RoleChameleon,
	}
	if o.WasChameleon {
		o.ChameleonAccused = accused[id]
		o.ChameleonWins = !o.ChameleonAccused
	}
	return o, nil
}
