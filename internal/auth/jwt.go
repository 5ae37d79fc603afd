// Package auth issues and validates the bearer tokens a trader
// presents to the REST and WebSocket gateways. A token is scoped to
// one seat on one market, not to a human user/role pair, since the
// core's only notion of identity is market.TraderID plus the seat
// index claimed for it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the trader seat a token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	TraderID        string `json:"trader_id"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	Market          string `json:"market"`
}

// JWTConfig configures token issuance.
type JWTConfig struct {
	SecretKey     string
	TokenDuration time.Duration
	Issuer        string
}

// JWTService issues and validates Claims-bearing tokens.
type JWTService struct {
	cfg JWTConfig
}

// NewJWTService builds a JWTService from config.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.TokenDuration <= 0 {
		cfg.TokenDuration = time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "clobd"
	}
	return &JWTService{cfg: cfg}
}

// IssueToken signs a token scoped to one trader's seat on one market.
func (s *JWTService) IssueToken(traderID string, seatIndex uint32, marketName string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   traderID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenDuration)),
		},
		TraderID:        traderID,
		TraderSeatIndex: seatIndex,
		Market:          marketName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

// ValidateToken parses and verifies a signed token, returning its Claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	return claims, nil
}
