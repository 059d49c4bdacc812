package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the bearer token payload accepted by this service. UserID becomes
// the acting user of every contact log operation; Name is the display name
// recorded as the author of new entries.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
