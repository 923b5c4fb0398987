package realtime

import "errors"

// Handshake authentication failures. All three are fatal to the connection
// attempt: a rejected handshake never creates a registry entry.
var (
	ErrNoToken        = errors.New("no token in cookies")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrUnknownSubject = errors.New("token subject no longer exists")
)

// AuthFailureReason maps a handshake failure to its metrics label.
func AuthFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	default:
		return "error"
	}
}
