package authctx

import (
	"context"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	requestIDKey ctxKey = "requestId"
)

const (
	KindAdmin      = "admin"
	KindCardholder = "cardholder"
)

// Principal is the authenticated caller of a request: either an admin
// (Firebase user registered in admins) or a cardholder holding a session
// token.
type Principal struct {
	Kind      string
	UID       string
	Email     string
	CompanyID string
	Role      string
	Claims    map[string]interface{}
}

func (p *Principal) IsAdmin() bool      { return p != nil && p.Kind == KindAdmin }
func (p *Principal) IsCardholder() bool { return p != nil && p.Kind == KindCardholder }

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil && p.UID != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
