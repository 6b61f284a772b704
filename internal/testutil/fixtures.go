package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomBuilder creates test rooms with a builder pattern
type RoomBuilder struct {
	code     string
	host     string
	phase    domain.Phase
	settings domain.RoomSettings
}

// NewRoomBuilder creates a new RoomBuilder with default values
func NewRoomBuilder() *RoomBuilder {
	code, _ := domain.GenerateRoomCode()
	return &RoomBuilder{
		code:     code,
		host:     "host",
		phase:    domain.PhaseLobby,
		settings: domain.DefaultSettings(),
	}
}

// WithCode sets the room code
func (b *RoomBuilder) WithCode(code string) *RoomBuilder {
	b.code = code
	return b
}

// WithHost sets the host nickname
func (b *RoomBuilder) WithHost(nickname string) *RoomBuilder {
	b.host = nickname
	return b
}

// WithPhase sets the current phase
func (b *RoomBuilder) WithPhase(phase domain.Phase) *RoomBuilder {
	b.phase = phase
	return b
}

// WithSettings sets the room settings
func (b *RoomBuilder) WithSettings(s domain.RoomSettings) *RoomBuilder {
	b.settings = s
	return b
}

// Build creates the room in the database
func (b *RoomBuilder) Build(t *testing.T, db *gorm.DB) *domain.Room {
	t.Helper()

	room := domain.NewRoom(b.code, b.host)
	room.ApplySettings(b.settings)
	room.CurrentPhase = b.phase

	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room
}

// PlayerBuilder creates test players
type PlayerBuilder struct {
	roomCode   string
	nickname   string
	role       domain.Role
	host       bool
	eliminated bool
	inLobby    bool
}

// NewPlayerBuilder creates a new PlayerBuilder for the given room
func NewPlayerBuilder(roomCode string) *PlayerBuilder {
	return &PlayerBuilder{
		roomCode: roomCode,
		nickname: fmt.Sprintf("player_%s", uuid.New().String()[:8]),
		role:     domain.RoleCivilian,
		inLobby:  true,
	}
}

// WithNickname sets the nickname
func (b *PlayerBuilder) WithNickname(nickname string) *PlayerBuilder {
	b.nickname = nickname
	return b
}

// WithRole sets the role
func (b *PlayerBuilder) WithRole(role domain.Role) *PlayerBuilder {
	b.role = role
	return b
}

// AsHost marks the player as host
func (b *PlayerBuilder) AsHost() *PlayerBuilder {
	b.host = true
	return b
}

// Eliminated marks the player as eliminated
func (b *PlayerBuilder) Eliminated() *PlayerBuilder {
	b.eliminated = true
	return b
}

// InGame clears the returned-to-lobby flag
func (b *PlayerBuilder) InGame() *PlayerBuilder {
	b.inLobby = false
	return b
}

// Build creates the player in the database
func (b *PlayerBuilder) Build(t *testing.T, db *gorm.DB) *domain.Player {
	t.Helper()

	player := &domain.Player{
		RoomCode:     b.roomCode,
		Nickname:     b.nickname,
		Role:         b.role,
		IsHost:       b.host,
		IsEliminated: b.eliminated,
		IsInLobby:    b.inLobby,
		JoinedAt:     time.Now().UTC(),
	}
	if err := db.Create(player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	// gorm skips zero values that have a column default.
	if !b.inLobby {
		if err := db.Model(player).Update("is_in_lobby", false).Error; err != nil {
			t.Fatalf("failed to update player: %v", err)
		}
	}
	return player
}

// RoundBuilder creates test rounds
type RoundBuilder struct {
	roomCode     string
	number       int
	civilianWord string
	outsiderWord string
	timerSeconds int
}

// NewRoundBuilder creates a new RoundBuilder for the given room
func NewRoundBuilder(roomCode string) *RoundBuilder {
	return &RoundBuilder{
		roomCode:     roomCode,
		number:       1,
		civilianWord: "cat",
		outsiderWord: "dog",
		timerSeconds: domain.DefaultTimerSeconds,
	}
}

// WithNumber sets the round number
func (b *RoundBuilder) WithNumber(n int) *RoundBuilder {
	b.number = n
	return b
}

// WithWords sets the word pair
func (b *RoundBuilder) WithWords(civilian, outsider string) *RoundBuilder {
	b.civilianWord = civilian
	b.outsiderWord = outsider
	return b
}

// Build creates the round in the database
func (b *RoundBuilder) Build(t *testing.T, db *gorm.DB) *domain.Round {
	t.Helper()

	round := &domain.Round{
		RoomCode:     b.roomCode,
		Number:       b.number,
		WordCivilian: b.civilianWord,
		WordOutsider: b.outsiderWord,
		TimerSeconds: b.timerSeconds,
	}
	if err := db.Create(round).Error; err != nil {
		t.Fatalf("failed to create round: %v", err)
	}
	return round
}

// Table is a room filled through the service layer, keyed by nickname.
type Table struct {
	Code    string
	Host    string
	Players map[string]*domain.Player
	Tokens  map[string]string
}

// NewTable creates a room hosted by the first nickname and joins the rest.
func NewTable(t *testing.T, rooms *service.RoomService, nicknames ...string) *Table {
	t.Helper()

	if len(nicknames) == 0 {
		t.Fatal("NewTable needs at least one nickname")
	}
	ctx := context.Background()

	created, err := rooms.CreateRoom(ctx, nicknames[0])
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	table := &Table{
		Code:    created.Room.Code,
		Host:    nicknames[0],
		Players: map[string]*domain.Player{nicknames[0]: created.Player},
		Tokens:  map[string]string{nicknames[0]: created.Token},
	}

	for _, nickname := range nicknames[1:] {
		joined, err := rooms.Join(ctx, table.Code, nickname)
		if err != nil {
			t.Fatalf("failed to join %s: %v", nickname, err)
		}
		table.Players[nickname] = joined.Player
		table.Tokens[nickname] = joined.Token
	}
	return table
}

// ID returns the player id for a nickname
func (tb *Table) ID(nickname string) uuid.UUID {
	return tb.Players[nickname].ID
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends an authenticated JSON request and returns the response
func Do(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, url, body, token))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
