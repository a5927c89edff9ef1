package model

import "context"

// Principal is the authenticated caller: a student or a mentor.
type Principal struct {
	ID   int64
	Kind RecipientKind
}

type principalCtxKey struct{}

// ContextWithPrincipal stores the authenticated principal in the request context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
