package service_test

import (
	"testing"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_IssueAndValidate(t *testing.T) {
	sessions := service.NewSessionService(testutil.TestConfig())
	player := &domain.Player{ID: uuid.New(), RoomCode: "ABCDE", Nickname: "ana"}

	token, err := sessions.Issue(player)
	require.NoError(t, err)

	claims, err := sessions.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, player.ID, claims.PlayerID)
	assert.Equal(t, "ABCDE", claims.RoomCode)
	assert.Equal(t, "ana", claims.Nickname)
}

func TestSessionService_Rejects(t *testing.T) {
	cfg := testutil.TestConfig()
	sessions := service.NewSessionService(cfg)
	player := &domain.Player{ID: uuid.New(), RoomCode: "ABCDE", Nickname: "ana"}

	otherCfg := testutil.TestConfig()
	otherCfg.SessionSecret = "a-different-secret"
	foreign, err := service.NewSessionService(otherCfg).Issue(player)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  player.ID.String(),
		"room": player.RoomCode,
		"nick": player.Nickname,
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(cfg.SessionSecret))
	require.NoError(t, err)

	missingRoom, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  player.ID.String(),
		"nick": player.Nickname,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.SessionSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "not-a-uuid",
		"room": player.RoomCode,
		"nick": player.Nickname,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.SessionSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"missing room", missingRoom},
		{"bad subject", badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sessions.Validate(tt.token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}
}
