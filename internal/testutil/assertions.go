package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if !assert.Equal(t, expected, resp.StatusCode, "unexpected status code") {
		body, _ := io.ReadAll(resp.Body)
		t.Logf("response body: %s", body)
	}
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertPhase reads the room back and checks its phase
func AssertPhase(t *testing.T, repos *repository.Repositories, code string, expected domain.Phase) {
	t.Helper()

	room, err := repos.Room.GetByCode(context.Background(), code)
	require.NoError(t, err, "failed to load room %s", code)
	assert.Equal(t, expected, room.CurrentPhase, "unexpected phase for room %s", code)
}

// RequirePlayer loads a player by nickname
func RequirePlayer(t *testing.T, repos *repository.Repositories, code, nickname string) *domain.Player {
	t.Helper()

	player, err := repos.Player.GetByRoomAndNickname(context.Background(), code, nickname)
	require.NoError(t, err, "failed to load player %s", nickname)
	return player
}
