package goRights

import "context"

type principalContextKey struct{}

// PrincipalProvider returns the principal of the current request.
// Implementations return ErrNoPrincipal when there is none.
type PrincipalProvider interface {
	CurrentPrincipal(ctx context.Context) (Principal, error)
}

// PrincipalProviderFunc adapts a function to [PrincipalProvider].
type PrincipalProviderFunc func(ctx context.Context) (Principal, error)

// CurrentPrincipal calls f.
func (f PrincipalProviderFunc) CurrentPrincipal(ctx context.Context) (Principal, error) {
	return f(ctx)
}

// ContextPrincipalProvider reads the principal stored by [WithPrincipal].
// It is the default provider of an [Engine].
type ContextPrincipalProvider struct{}

// CurrentPrincipal returns the context principal or [ErrNoPrincipal].
func (ContextPrincipalProvider) CurrentPrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}
	return p, nil
}

// WithPrincipal attaches p to ctx. HTTP middleware calls it after parsing a
// bearer token.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by [WithPrincipal].
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || isNilPrincipal(p) {
		return nil, false
	}
	return p, true
}
