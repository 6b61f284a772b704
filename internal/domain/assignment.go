package domain

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// MinPlayersToStart is the alive head-count needed to deal roles.
const MinPlayersToStart = 3

// MinPlayersToContinue is the alive head-count needed for another round.
const MinPlayersToContinue = 2

// OutsiderBracket returns the permitted outsider counts for a table size and
// the value used when the request falls outside them.
func OutsiderBracket(aliveCount int) (allowed []int, fallback int) {
	switch {
	case aliveCount <= 4:
		return []int{1}, 1
	case aliveCount <= 6:
		return []int{1, 2}, 1
	default:
		return []int{2, 3}, 2
	}
}

func NormalizeOutsiderCount(aliveCount, requested int) int {
	allowed, fallback := OutsiderBracket(aliveCount)
	for _, n := range allowed {
		if n == requested {
			return n
		}
	}
	return fallback
}

// NormalizeSettings fits settings to the current alive head-count.
func NormalizeSettings(aliveCount int, s RoomSettings) RoomSettings {
	s.OutsiderCount = NormalizeOutsiderCount(aliveCount, s.OutsiderCount)
	s.DrawingTimerSeconds = NormalizeTimer(s.DrawingTimerSeconds)
	s.WordTheme = NormalizeTheme(s.WordTheme)
	return s
}

type RoleAssignment struct {
	Outsiders []uuid.UUID
	Chameleon *uuid.UUID
	Dictator  *uuid.UUID
}

func (a RoleAssignment) RoleOf(id uuid.UUID) Role {
	for _, o := range a.Outsiders {
		if o == id {
			return RoleOutsider
		}
	}
	if a.Chameleon != nil && *a.Chameleon == id {
		return RoleChameleon
	}
	if a.Dictator != nil && *a.Dictator == id {
		return RoleDictator
	}
	return RoleCivilian
}

// Specials lists every non-civilian assignment.
func (a RoleAssignment) Specials() map[uuid.UUID]Role {
	out := make(map[uuid.UUID]Role, len(a.Outsiders)+2)
	for _, o := range a.Outsiders {
		out[o] = RoleOutsider
	}
	if a.Chameleon != nil {
		out[*a.Chameleon] = RoleChameleon
	}
	if a.Dictator != nil {
		out[*a.Dictator] = RoleDictator
	}
	return out
}

// AssignRoles shuffles players uniformly and deals slots in order: outsiders
// first, then Chameleon, then Dictator. A slot counts as free only while at
// least one Civilian would remain. When the Chameleon finds no free slot the
// last outsider is converted instead; the Dictator is simply skipped.
//
// s is expected to be normalized already.
func AssignRoles(rng *rand.Rand, players []uuid.UUID, s RoomSettings) RoleAssignment {
	order := make([]uuid.UUID, len(players))
	copy(order, players)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	n := s.OutsiderCount
	if n > len(order) {
		n = len(order)
	}
	if n < 0 {
		n = 0
	}

	var a RoleAssignment
	a.Outsiders = append(a.Outsiders, order[:n]...)
	next := n
	free := func() bool { return next < len(order)-1 }

	if s.ChameleonEnabled {
		if free() {
			id := order[next]
			a.Chameleon = &id
			next++
		} else if len(a.Outsiders) > 0 {
			id := a.Outsiders[len(a.Outsiders)-1]
			a.Outsiders = a.Outsiders[:len(a.Outsiders)-1]
			a.Chameleon = &id
		}
	}

	if s.DictatorEnabled && free() {
		id := order[next]
		a.Dictator = &id
	}

	return a
}
