package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxDrawingBytes caps an uploaded drawing payload.
const MaxDrawingBytes = 2 << 20

// Drawing is a player's submission for the current round. Image data is
// opaque to the server.
type Drawing struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode    string    `json:"roomCode" gorm:"size:8;not null;uniqueIndex:idx_drawings_room_nickname"`
	Nickname    string    `json:"nickname" gorm:"size:32;not null;uniqueIndex:idx_drawings_room_nickname"`
	RoundID     uuid.UUID `json:"roundId" gorm:"type:uuid;not null"`
	ContentType string    `json:"contentType" gorm:"size:64;not null;default:'image/png'"`
	ImageData   []byte    `json:"-" gorm:"type:bytea;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Drawing) TableName() string {
	return "drawings"
}
