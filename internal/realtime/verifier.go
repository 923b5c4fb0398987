package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

// Verifier authenticates a channel handshake from the session token. It
// shares the signing secret and claim shape with the REST auth layer: the
// channel and the REST API are two transports over one identity system.
type Verifier struct {
	jwtSecret string
	users     ports.UserRepository
}

func NewVerifier(jwtSecret string, users ports.UserRepository) *Verifier {
	return &Verifier{jwtSecret: jwtSecret, users: users}
}

// Verify validates the raw token and resolves its subject to a live account.
// The returned Principal carries the role stored on the account, not the one
// embedded in the token, so a role change takes effect on the next connect.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Principal, error) {
	if rawToken == "" {
		return Principal{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(v.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return Principal{}, ErrInvalidToken
	}

	subjectID, _ := claims["id"].(string)
	if subjectID == "" {
		return Principal{}, ErrInvalidToken
	}

	user, err := v.users.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Principal{}, ErrUnknownSubject
		}
		return Principal{}, fmt.Errorf("resolve subject: %w", err)
	}

	return Principal{SubjectID: user.ID, Role: user.Role}, nil
}
