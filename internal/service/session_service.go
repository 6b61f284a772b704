package service

import (
	"errors"
	"time"

	"github.com/dom/outsider-party/internal/config"
	"github.com/dom/outsider-party/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims identify a player inside one room.
type SessionClaims struct {
	PlayerID uuid.UUID
	RoomCode string
	Nickname string
}

// SessionService issues and checks the HMAC tokens handed out on join.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{
		secret: []byte(cfg.SessionSecret),
		ttl:    time.Duration(cfg.SessionTTLHours) * time.Hour,
	}
}

func (s *SessionService) Issue(player *domain.Player) (string, error) {
	issued := time.Now()
	claims := jwt.MapClaims{
		"sub":  player.ID.String(),
		"room": player.RoomCode,
		"nick": player.Nickname,
		"iat":  issued.Unix(),
		"exp":  issued.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	room, _ := claims["room"].(string)
	nick, _ := claims["nick"].(string)
	id, err := uuid.Parse(sub)
	if err != nil || room == "" || nick == "" {
		return nil, ErrInvalidToken
	}

	return &SessionClaims{PlayerID: id, RoomCode: room, Nickname: nick}, nil
}
