package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// RoomCodeAlphabet drops look-alike glyphs (0/O, 1/I).
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 5

	DefaultTimerSeconds = 60
	DefaultWordTheme    = "general"
)

// AllowedTimerSeconds is the closed set of drawing timer lengths.
var AllowedTimerSeconds = []int{30, 45, 60, 90, 120}

type Room struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code                string    `json:"code" gorm:"size:8;uniqueIndex;not null"`
	HostNickname        string    `json:"hostNickname" gorm:"size:32;not null"`
	OutsiderCount       int       `json:"outsiderCount" gorm:"not null;default:1"`
	ChameleonEnabled    bool      `json:"chameleonEnabled" gorm:"not null;default:false"`
	DictatorEnabled     bool      `json:"dictatorEnabled" gorm:"not null;default:false"`
	DrawingTimerSeconds int       `json:"drawingTimerSeconds" gorm:"not null;default:60"`
	WordTheme           string    `json:"wordTheme" gorm:"size:64;not null;default:'general'"`
	CurrentPhase        Phase     `json:"currentPhase" gorm:"size:16;not null;default:'LOBBY'"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (Room) TableName() string {
	return "rooms"
}

func NewRoom(code, hostNickname string) *Room {
	s := DefaultSettings()
	room := &Room{
		Code:         code,
		HostNickname: hostNickname,
		CurrentPhase: PhaseLobby,
	}
	room.ApplySettings(s)
	return room
}

// RoomSettings are the host-tunable knobs of a room.
type RoomSettings struct {
	OutsiderCount       int    `json:"outsiderCount"`
	ChameleonEnabled    bool   `json:"chameleonEnabled"`
	DictatorEnabled     bool   `json:"dictatorEnabled"`
	DrawingTimerSeconds int    `json:"drawingTimerSeconds"`
	WordTheme           string `json:"wordTheme"`
}

func DefaultSettings() RoomSettings {
	return RoomSettings{
		OutsiderCount:       1,
		DrawingTimerSeconds: DefaultTimerSeconds,
		WordTheme:           DefaultWordTheme,
	}
}

func (r *Room) Settings() RoomSettings {
	return RoomSettings{
		OutsiderCount:       r.OutsiderCount,
		ChameleonEnabled:    r.ChameleonEnabled,
		DictatorEnabled:     r.DictatorEnabled,
		DrawingTimerSeconds: r.DrawingTimerSeconds,
		WordTheme:           r.WordTheme,
	}
}

func (r *Room) ApplySettings(s RoomSettings) {
	r.OutsiderCount = s.OutsiderCount
	r.ChameleonEnabled = s.ChameleonEnabled
	r.DictatorEnabled = s.DictatorEnabled
	r.DrawingTimerSeconds = s.DrawingTimerSeconds
	r.WordTheme = s.WordTheme
}

// SettingsOverride carries a partial settings update; nil fields keep the
// current value.
type SettingsOverride struct {
	OutsiderCount       *int    `json:"outsiderCount,omitempty"`
	ChameleonEnabled    *bool   `json:"chameleonEnabled,omitempty"`
	DictatorEnabled     *bool   `json:"dictatorEnabled,omitempty"`
	DrawingTimerSeconds *int    `json:"drawingTimerSeconds,omitempty"`
	WordTheme           *string `json:"wordTheme,omitempty"`
}

func (s RoomSettings) Merge(o *SettingsOverride) RoomSettings {
	if o == nil {
		return s
	}
	if o.OutsiderCount != nil {
		s.OutsiderCount = *o.OutsiderCount
	}
	if o.ChameleonEnabled != nil {
		s.ChameleonEnabled = *o.ChameleonEnabled
	}
	if o.DictatorEnabled != nil {
		s.DictatorEnabled = *o.DictatorEnabled
	}
	if o.DrawingTimerSeconds != nil {
		s.DrawingTimerSeconds = *o.DrawingTimerSeconds
	}
	if o.WordTheme != nil {
		s.WordTheme = *o.WordTheme
	}
	return s
}

// NormalizeTimer maps anything outside AllowedTimerSeconds to the default.
func NormalizeTimer(seconds int) int {
	for _, allowed := range AllowedTimerSeconds {
		if seconds == allowed {
			return seconds
		}
	}
	return DefaultTimerSeconds
}

func NormalizeTheme(theme string) string {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		return DefaultWordTheme
	}
	return theme
}

// NormalizeRoomCode upper-cases and trims user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, c) {
			return false
		}
	}
	return true
}

// GenerateRoomCode draws RoomCodeLength symbols from RoomCodeAlphabet.
// The alphabet has 32 symbols so a byte modulo keeps the draw uniform.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = RoomCodeAlphabet[int(b)%len(RoomCodeAlphabet)]
	}
	return string(buf), nil
}
