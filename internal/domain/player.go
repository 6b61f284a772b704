package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxNicknameLength = 24

type Player struct {
	ID                       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode                 string    `json:"roomCode" gorm:"size:8;not null;uniqueIndex:idx_players_room_nickname"`
	Nickname                 string    `json:"nickname" gorm:"size:32;not null;uniqueIndex:idx_players_room_nickname"`
	Role                     Role      `json:"role" gorm:"size:16;not null;default:'CIVILIAN'"`
	IsEliminated             bool      `json:"isEliminated" gorm:"not null;default:false"`
	IsHost                   bool      `json:"isHost" gorm:"not null;default:false"`
	IsReady                  bool      `json:"isReady" gorm:"not null;default:false"`
	IsInLobby                bool      `json:"isInLobby" gorm:"not null;default:true"`
	HasUsedAccusation        bool      `json:"hasUsedAccusation" gorm:"not null;default:false"`
	DictatorImmunityUsed     bool      `json:"dictatorImmunityUsed" gorm:"not null;default:false"`
	DictatorDoubleVoteActive bool      `json:"dictatorDoubleVoteActive" gorm:"not null;default:false"`
	JoinedAt                 time.Time `json:"joinedAt" gorm:"not null;default:now()"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func (Player) TableName() string {
	return "players"
}

func (p *Player) IsAlive() bool {
	return !p.IsEliminated
}

// VoteWeight is 2 while a surviving Dictator holds the double vote, else 1.
func (p *Player) VoteWeight() int {
	if p.Role == RoleDictator && p.DictatorDoubleVoteActive {
		return 2
	}
	return 1
}

// RoleRevealed reports whether the role is public knowledge: eliminated
// players and a Dictator who burned immunity are exposed to everyone.
func (p *Player) RoleRevealed() bool {
	return p.IsEliminated || (p.Role == RoleDictator && p.DictatorImmunityUsed)
}

func AlivePlayers(players []*Player) []*Player {
	alive := make([]*Player, 0, len(players))
	for _, p := range players {
		if p.IsAlive() {
			alive = append(alive, p)
		}
	}
	return alive
}

func FindPlayer(players []*Player, nickname string) *Player {
	for _, p := range players {
		if p.Nickname == nickname {
			return p
		}
	}
	return nil
}

func FindPlayerByID(players []*Player, id uuid.UUID) *Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// NormalizeNickname trims whitespace and enforces the length bounds.
func NormalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", ErrInvalidNickname
	}
	return nickname, nil
}
