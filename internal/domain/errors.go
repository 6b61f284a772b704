package domain

import "errors"

// Input errors
var (
	ErrInvalidNickname = errors.New("nickname must be 1-24 characters")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrDrawingTooLarge = errors.New("drawing exceeds size limit")
	ErrEmptyDrawing    = errors.New("drawing is empty")
)

// Game rule errors
var (
	ErrNotEnoughPlayers    = errors.New("at least 3 alive players are required to start")
	ErrGameCannotContinue  = errors.New("at least 2 alive players are required for another round")
	ErrGameInProgress      = errors.New("game already in progress")
	ErrGameOver            = errors.New("the game is over")
	ErrNotHost             = errors.New("only the host can perform this action")
	ErrSettingsLocked      = errors.New("settings can only change in the lobby")
	ErrNoTieToRevote       = errors.New("revote is only possible after a tie or an empty vote")
	ErrRevotePending       = errors.New("the vote was not settled; revote first")
	ErrPlayersStillPresent = errors.New("room still has players")
	ErrDrawingsHidden      = errors.New("drawings are not revealed yet")
)

// Ballot errors
var (
	ErrVotingClosed          = errors.New("voting is not open")
	ErrSelfVote              = errors.New("cannot vote for yourself")
	ErrVoterEliminated       = errors.New("eliminated players cannot vote")
	ErrTargetNotEligible     = errors.New("target is not eligible")
	ErrBallotAlreadyCast     = errors.New("already cast a ballot this round")
	ErrChameleonCannotAccuse = errors.New("the chameleon cannot accuse")
	ErrAccusationUsed        = errors.New("accusation already used this game")
	ErrChameleonDisabled     = errors.New("chameleon is not enabled in this room")
	ErrSelfAccusation        = errors.New("cannot accuse yourself")
	ErrBallotsPending        = errors.New("not every living player has voted")
)
