// Package session owns the authenticated session of the natours client:
// the bearer token, the current user and the credentials persisted for the
// next run.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/SmileSnow819/natours/pkg/api"
)

// Status is the authentication state of a session.
type Status int

const (
	// Unauthenticated means no token is installed.
	Unauthenticated Status = iota
	// Restoring means a persisted token is installed but not yet validated.
	Restoring
	// Authenticated means a token and a user record are installed.
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "Unauthenticated"
	case Restoring:
		return "Restoring"
	case Authenticated:
		return "Authenticated"
	default:
		return "Unknown"
	}
}

// User is the user record of a session.
type User = api.User

// Session is a snapshot of the session state. User is a private copy.
type Session struct {
	User   *User
	Token  string
	Status Status
}

// Authenticated reports whether s carries a validated user.
func (s Session) Authenticated() bool {
	return s.Status == Authenticated
}

func (s Session) equal(o Session) bool {
	if s.Status != o.Status || s.Token != o.Token {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == o.User
	}
	return *s.User == *o.User
}

// ChangeListener is notified with the new snapshot after every state change.
type ChangeListener interface {
	OnSessionChange(s Session)
}

// ListenerFunc adapts a function to ChangeListener.
type ListenerFunc func(s Session)

// OnSessionChange calls f(s).
func (f ListenerFunc) OnSessionChange(s Session) {
	f(s)
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// decodeUser parses a persisted user record. Records without an id are
// treated as absent.
func decodeUser(data []byte) *User {
	if len(data) == 0 {
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil || u.ID == "" {
		return nil
	}
	return &u
}

// fingerprint identifies a token in logs without revealing it.
func fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
