package identity

import (
	"context"
	"errors"
)

// ErrNotFound signals that no profile exists for a subject id.
var ErrNotFound = errors.New("identity not found")

type Identity struct {
	UserId   string
	Email    string
	FullName string
	IsActive bool
	Roles    []string
}

// Directory resolves authenticated subject ids to profile data. The
// gateway treats any lookup failure like invalid credentials, so
// implementations must not retry internally.
type Directory interface {
	Lookup(ctx context.Context, subjectId string) (Identity, error)
}
