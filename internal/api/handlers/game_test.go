package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/dom/outsider-party/internal/api/handlers"
	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameHandler_Round(t *testing.T) {
	ts := testutil.NewTestServer(t)
	table := testutil.NewTable(t, ts.Services.Room, "ana", "bo", "cy", "dee")
	base := ts.APIURL("/rooms/" + table.Code)

	resp := testutil.Do(t, http.MethodPost, base+"/start", nil, table.Tokens["bo"])
	testutil.AssertErrorResponse(t, resp, http.StatusForbidden, "only the host")

	resp = testutil.Do(t, http.MethodPost, base+"/start", map[string]interface{}{
		"settings": map[string]interface{}{"drawingTimerSeconds": 30},
	}, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var started handlers.StartGameResponse
	testutil.AssertJSONResponse(t, resp, &started)
	assert.Equal(t, 1, started.RoundNumber)
	assert.Equal(t, 30, started.TimerSeconds)

	resp = testutil.Do(t, http.MethodPost, base+"/start", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusConflict)

	// Roles are fixed so the vote below has a known result
	for nickname, player := range table.Players {
		role := domain.RoleCivilian
		if nickname == "dee" {
			role = domain.RoleOutsider
		}
		require.NoError(t, ts.Repos.Player.SetRole(context.Background(), player.ID, role))
	}

	var ready handlers.ReadyResponse
	for _, nickname := range []string{"ana", "bo", "cy", "dee"} {
		resp = testutil.Do(t, http.MethodPost, base+"/ready", nil, table.Tokens[nickname])
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		testutil.AssertJSONResponse(t, resp, &ready)
	}
	assert.True(t, ready.AllReady)
	require.NotNil(t, ready.DrawStartsAt)
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseDraw)

	resp = putDrawing(t, base+"/drawing", table.Tokens["ana"], nil)
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	oversized := bytes.Repeat([]byte{0x1}, domain.MaxDrawingBytes+1)
	resp = putDrawing(t, base+"/drawing", table.Tokens["ana"], oversized)
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	var submitted handlers.SubmitDrawingResponse
	for _, nickname := range []string{"ana", "bo", "cy", "dee"} {
		resp = putDrawing(t, base+"/drawing", table.Tokens[nickname], []byte("png:"+nickname))
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		testutil.AssertJSONResponse(t, resp, &submitted)
	}
	assert.True(t, submitted.AllSubmitted)
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseReveal)

	resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": table.ID("bo").String()}, table.Tokens["ana"])
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "voting is not open")

	resp = testutil.Do(t, http.MethodPost, base+"/vote/open", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": "nope"}, table.Tokens["ana"])
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid target ID")

	resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": table.ID("ana").String()}, table.Tokens["ana"])
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "cannot vote for yourself")

	var ballot handlers.BallotResponse
	for _, voter := range []string{"ana", "bo", "cy"} {
		resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": table.ID("dee").String()}, table.Tokens[voter])
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		testutil.AssertJSONResponse(t, resp, &ballot)
	}
	assert.Equal(t, 3, ballot.BallotsCast)
	assert.Equal(t, 4, ballot.BallotsNeeded)
	assert.Nil(t, ballot.Outcome)

	resp = testutil.Do(t, http.MethodPost, base+"/resolve", nil, table.Tokens["bo"])
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "not every living player has voted")
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseVote)

	resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": table.ID("ana").String()}, table.Tokens["dee"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertJSONResponse(t, resp, &ballot)
	require.NotNil(t, ballot.Outcome)
	assert.Equal(t, domain.ResolutionEliminated, ballot.Outcome.Kind)
	assert.Equal(t, "dee", ballot.Outcome.EliminatedNickname)

	resp = testutil.Do(t, http.MethodPost, base+"/resolve", nil, table.Tokens["cy"])
	var outcome domain.VoteOutcome
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertJSONResponse(t, resp, &outcome)
	assert.True(t, outcome.AlreadyResolved)

	resp = testutil.Do(t, http.MethodGet, base+"/state", nil, table.Tokens["dee"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var view domain.RoomView
	testutil.AssertJSONResponse(t, resp, &view)
	assert.Equal(t, domain.PhaseResults, view.Phase)
	require.NotNil(t, view.Verdict)
	assert.Equal(t, domain.VerdictCiviliansWin, view.Verdict.Verdict)
	assert.Equal(t, 3, view.Tally["dee"])

	resp = testutil.Do(t, http.MethodPost, base+"/advance", nil, table.Tokens["ana"])
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "the game is over")

	resp = testutil.Do(t, http.MethodPost, base+"/reset", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var reset handlers.ResetResponse
	testutil.AssertJSONResponse(t, resp, &reset)
	assert.True(t, reset.Reset)
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseLobby)
}

func TestGameHandler_ReturnToLobby(t *testing.T) {
	ts := testutil.NewTestServer(t)
	table := testutil.NewTable(t, ts.Services.Room, "ana", "bo", "cy")
	base := ts.APIURL("/rooms/" + table.Code)

	resp := testutil.Do(t, http.MethodPost, base+"/start", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp = testutil.Do(t, http.MethodPost, base+"/draw-start", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp = testutil.Do(t, http.MethodPost, base+"/reveal", nil, table.Tokens["bo"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp = testutil.Do(t, http.MethodPost, base+"/vote/open", nil, table.Tokens["ana"])
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	for voter, target := range map[string]string{"ana": "bo", "bo": "cy", "cy": "bo"} {
		resp = testutil.Do(t, http.MethodPost, base+"/votes", map[string]string{"targetId": table.ID(target).String()}, table.Tokens[voter])
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	}
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseResults)

	var ret handlers.ReturnToLobbyResponse
	for i, nickname := range []string{"bo", "cy", "ana"} {
		resp = testutil.Do(t, http.MethodPost, base+"/return-to-lobby", nil, table.Tokens[nickname])
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		testutil.AssertJSONResponse(t, resp, &ret)
		assert.Equal(t, 2-i, ret.Waiting)
	}
	assert.True(t, ret.Reset)
	testutil.AssertPhase(t, ts.Repos, table.Code, domain.PhaseLobby)
}
