// Package tokenpkg issues and verifies the bearer tokens that carry the caller's client GUID.
package tokenpkg

import (
	"fmt"
	"time"
)

// Token types.
const (
	TypePaseto = "paseto"
	TypeJWT    = "jwt"
)

// Maker manages tokens.
type Maker interface {
	// CreateToken creates a new token for a specific client and duration.
	CreateToken(clientGUID string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the Maker for tokenType, PASETO when tokenType is empty.
func NewMaker(tokenType, symmetricKey string) (Maker, error) {
	switch tokenType {
	case TypePaseto, "":
		return NewPasetoMaker(symmetricKey)
	case TypeJWT:
		return NewJWTMaker(symmetricKey)
	default:
		return nil, fmt.Errorf("unknown token type %q", tokenType)
	}
}
