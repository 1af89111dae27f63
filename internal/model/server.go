package model

import (
	"context"
	"net"

	"github.com/google/uuid"
)

type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}

// TokenManager generates and validates access tokens issued by the identity
// provider. Claims carry the stable user id and role.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, role Role) (string, error)
	ParseAccessToken(token string) (uuid.UUID, Role, error)
}

// Identity is the authenticated caller, resolved once by the authentication
// middleware and carried on the request context.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// ContextManager stores and retrieves the caller identity on a context.
type ContextManager interface {
	SetIdentityToContext(ctx context.Context, identity Identity) context.Context
	GetIdentityFromContext(ctx context.Context) (Identity, bool)
}
