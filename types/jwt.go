package types

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims shared by both credential spaces.
// The subject id lives in RegisteredClaims.Subject.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}
