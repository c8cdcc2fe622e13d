package session

import (
	"strings"
	"time"

	"cardlink/backend/internal/domain/cardholder"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a cardholder session token. Subject is the
// cardholder id.
type Claims struct {
	CompanyID string `json:"cid"`
	jwt.RegisteredClaims
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Trim() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Profile   *cardholder.Profile `json:"profile"`
}
