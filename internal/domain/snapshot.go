package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomSnapshot is everything persisted for one room at a point in time.
// Views derived from it are redacted per viewer.
type RoomSnapshot struct {
	Room             *Room
	Players          []*Player
	Round            *Round
	Votes            []*Vote
	Accusations      []*Accusation
	DrawingNicknames []string
	TakenAt          time.Time
}

type RoomView struct {
	Code       string         `json:"code"`
	Phase      Phase          `json:"phase"`
	Host       string         `json:"hostNickname"`
	Settings   RoomSettings   `json:"settings"`
	Players    []PlayerView   `json:"players"`
	Round      *RoundView     `json:"round,omitempty"`
	Tally      map[string]int `json:"tally,omitempty"`
	Verdict    *GameVerdict   `json:"verdict,omitempty"`
	You        *SelfView      `json:"you,omitempty"`
	ServerTime time.Time      `json:"serverTime"`
}

type PlayerView struct {
	ID           uuid.UUID `json:"id"`
	Nickname     string    `json:"nickname"`
	IsHost       bool      `json:"isHost"`
	IsEliminated bool      `json:"isEliminated"`
	IsReady      bool      `json:"isReady"`
	IsInLobby    bool      `json:"isInLobby"`
	HasVoted     bool      `json:"hasVoted"`
	HasDrawn     bool      `json:"hasDrawn"`
	HasAccused   bool      `json:"hasAccused"`
	Role         *Role     `json:"role,omitempty"`
}

type RoundView struct {
	Number       int          `json:"number"`
	TimerSeconds int          `json:"timerSeconds"`
	DrawStartsAt *time.Time   `json:"drawStartsAt,omitempty"`
	RemainingMs  int64        `json:"remainingMs"`
	TiePlayerIDs []uuid.UUID  `json:"tiePlayerIds,omitempty"`
	RevoteCount  int          `json:"revoteCount"`
	Outcome      *VoteOutcome `json:"outcome,omitempty"`
}

type SelfView struct {
	PlayerID          uuid.UUID `json:"playerId"`
	Nickname          string    `json:"nickname"`
	Role              Role      `json:"role"`
	Word              string    `json:"word,omitempty"`
	VoteWeight        int       `json:"voteWeight"`
	CanAccuse         bool      `json:"canAccuse"`
	HasUsedAccusation bool      `json:"hasUsedAccusation"`
}

// ViewFor renders the snapshot for one viewer. An empty or unknown nickname
// gets the public spectator view. Roles stay hidden unless they belong to the
// viewer or RoleRevealed says they are public; words are only ever shown to
// their own holder.
func (s *RoomSnapshot) ViewFor(nickname string) *RoomView {
	v := &RoomView{
		Code:       s.Room.Code,
		Phase:      s.Room.CurrentPhase,
		Host:       s.Room.HostNickname,
		Settings:   s.Room.Settings(),
		ServerTime: s.TakenAt,
	}

	ballots := map[string]bool{}
	if s.Round != nil {
		ballots = Ballots(s.Round, s.Votes, s.Accusations, s.Players)
	}
	drawn := make(map[string]bool, len(s.DrawingNicknames))
	for _, n := range s.DrawingNicknames {
		drawn[n] = true
	}

	for _, p := range s.Players {
		pv := PlayerView{
			ID:           p.ID,
			Nickname:     p.Nickname,
			IsHost:       p.IsHost,
			IsEliminated: p.IsEliminated,
			IsReady:      p.IsReady,
			IsInLobby:    p.IsInLobby,
			HasVoted:     ballots[p.Nickname],
			HasDrawn:     drawn[p.Nickname],
			HasAccused:   p.HasUsedAccusation,
		}
		if s.Room.CurrentPhase != PhaseLobby && (p.Nickname == nickname || p.RoleRevealed()) {
			role := p.Role
			pv.Role = &role
		}
		v.Players = append(v.Players, pv)
	}

	if s.Round != nil && s.Room.CurrentPhase != PhaseLobby {
		rv := &RoundView{
			Number:       s.Round.Number,
			TimerSeconds: s.Round.TimerSeconds,
			DrawStartsAt: s.Round.DrawStartsAt,
			RemainingMs:  s.Round.DrawRemaining(s.TakenAt).Milliseconds(),
			TiePlayerIDs: s.Round.TieIDs(),
			RevoteCount:  s.Round.RevoteCount,
		}
		if s.Room.CurrentPhase == PhaseResults && s.Round.IsResolved() {
			outcome := s.Round.StoredOutcome()
			if outcome.EliminatedPlayerID != nil {
				if p := FindPlayerByID(s.Players, *outcome.EliminatedPlayerID); p != nil {
					outcome.EliminatedNickname = p.Nickname
				}
			}
			rv.Outcome = &outcome
			verdict := EvaluateGame(s.Players, s.Round)
			v.Verdict = &verdict
			v.Tally = TallyVotes(CountedVotes(s.Votes, s.Players)).ByNickname(s.Players)
		}
		v.Round = rv
	}

	if me := FindPlayer(s.Players, nickname); me != nil {
		self := &SelfView{
			PlayerID:          me.ID,
			Nickname:          me.Nickname,
			Role:              me.Role,
			VoteWeight:        me.VoteWeight(),
			HasUsedAccusation: me.HasUsedAccusation,
		}
		if s.Room.CurrentPhase != PhaseLobby && s.Round != nil {
			self.Word = s.Round.WordFor(me.Role)
		}
		self.CanAccuse = s.Room.ChameleonEnabled && me.IsAlive() &&
			me.Role != RoleChameleon && !me.HasUsedAccusation
		v.You = self
	}

	return v
}
