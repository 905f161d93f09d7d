package identity

import "context"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the caller as established by the identity provider. Role is
// filled in from the profile store, never from the token.
type User struct {
	ID    string
	Email string
	Role  string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the authenticated user. ok is false for anonymous
// requests.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	if !ok || u.ID == "" {
		return User{}, false
	}
	return u, true
}

// UserID returns the authenticated user id or "".
func UserID(ctx context.Context) string {
	u, _ := FromContext(ctx)
	return u.ID
}
