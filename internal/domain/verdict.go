package domain

type Verdict string

const (
	VerdictContinue        Verdict = "continue"
	VerdictCiviliansWin    Verdict = "civilians_win"
	VerdictOutsidersWin    Verdict = "outsiders_win"
	VerdictChameleonWins   Verdict = "chameleon_wins"
	VerdictChameleonCaught Verdict = "chameleon_caught"
)

type GameVerdict struct {
	Verdict        Verdict `json:"verdict"`
	GameOver       bool    `json:"gameOver"`
	AliveCount     int     `json:"aliveCount"`
	OutsidersAlive int     `json:"outsidersAlive"`
	// NextAction tells the host what the results screen offers.
	NextAction string `json:"nextAction"`
}

const (
	NextActionRevote    = "revote"
	NextActionNextRound = "next_round"
	NextActionLobby     = "return_to_lobby"
)

// EvaluateGame computes the win state after a resolved round. An unaccused
// Chameleon voted out wins outright; otherwise Civilians win once no Outsider
// is alive and Outsiders win at half the table or more.
func EvaluateGame(players []*Player, round *Round) GameVerdict {
	alive := AlivePlayers(players)
	v := GameVerdict{AliveCount: len(alive)}
	for _, p := range alive {
		if p.Role == RoleOutsider {
			v.OutsidersAlive++
		}
	}

	switch {
	case round != nil && round.Resolution == ResolutionEliminated && round.EliminatedWasChameleon && !round.ChameleonAccused:
		v.Verdict = VerdictChameleonWins
	case v.OutsidersAlive == 0:
		v.Verdict = VerdictCiviliansWin
	case v.OutsidersAlive*2 >= v.AliveCount:
		v.Verdict = VerdictOutsidersWin
	case round != nil && round.Resolution == ResolutionEliminated && round.EliminatedWasChameleon:
		v.Verdict = VerdictChameleonCaught
	default:
		v.Verdict = VerdictContinue
	}

	switch v.Verdict {
	case VerdictChameleonWins, VerdictCiviliansWin, VerdictOutsidersWin:
		v.GameOver = true
		v.NextAction = NextActionLobby
	default:
		if round != nil && (round.Resolution == ResolutionTie || round.Resolution == ResolutionNoVotes) {
			v.NextAction = NextActionRevote
		} else if v.AliveCount < MinPlayersToContinue {
			v.GameOver = true
			v.NextAction = NextActionLobby
		} else {
			v.NextAction = NextActionNextRound
		}
	}
	return v
}
