package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role decides what a viewer may see on the calendar grid.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleArtist Role = "ARTIST"
)

// User is the identity forwarded by the gateway in front of the API.
type User struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the user manages events and fees.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type contextKey string

const userKey contextKey = "user"

var ErrNoUser = errors.New("user not found")

// ParseRole maps a header value to a Role. An empty value is an artist.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return RoleArtist, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleArtist):
		return RoleArtist, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser retrieves the caller from the context. Returns ErrNoUser if absent.
func CurrentUser(ctx context.Context) (User, error) {
	u, ok := ctx.Value(userKey).(User)
	if !ok {
		return User{}, ErrNoUser
	}
	return u, nil
}

// CurrentRole returns the caller's role, defaulting to RoleArtist.
func CurrentRole(ctx context.Context) Role {
	u, err := CurrentUser(ctx)
	if err != nil {
		return RoleArtist
	}
	return u.Role
}
