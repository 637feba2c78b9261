// Package session holds the logged-in user object shared by the HTTP layer,
// the dashboard and the upload helper. The role only gates affordances; it is
// not a security boundary on its own.
package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrNoSession is returned when nobody is logged in.
var ErrNoSession = errors.New("session: not logged in")

type Session struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	EmailName string `json:"email_name"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`

	// AccessToken is only set on sessions persisted by CLI clients.
	AccessToken string `json:"access_token,omitempty"`
}

// IsStaff reports whether the role may use staff affordances.
func (s *Session) IsStaff() bool {
	if s == nil {
		return false
	}
	switch strings.ToLower(s.Role) {
	case "staff", "admin":
		return true
	}
	return false
}

// Identifier is the short staff handle embedded in upload object names.
func (s *Session) Identifier() string {
	if s == nil {
		return "anonymous"
	}
	if s.EmailName != "" {
		return s.EmailName
	}
	if local, _, ok := strings.Cut(s.Email, "@"); ok && local != "" {
		return local
	}
	return strconv.FormatUint(uint64(s.ID), 10)
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying s.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithContext.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}
