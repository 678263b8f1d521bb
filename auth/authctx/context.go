// Package authctx carries the identity of an authenticated caller through a
// request context. It is generic so the auth layer can store whatever
// identity type its backend produces:
//
//	ctx = authctx.Set(ctx, identity)
//	id, ok := authctx.Get[*guard.Identity](ctx)
package authctx

import (
	"context"
	"errors"
)

type contextKey struct{}

// ErrNoIdentity is returned when no identity of the requested type is in the context.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// Set stores an identity in the context.
func Set(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// Get retrieves the identity stored by Set, if it has type T.
func Get[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(contextKey{}).(T)
	return v, ok
}

// MustGet is Get for handlers that only run behind the guard. It panics
// when the identity is missing.
func MustGet[T any](ctx context.Context) T {
	v, ok := Get[T](ctx)
	if !ok {
		panic(ErrNoIdentity)
	}
	return v
}

// GetOrError is Get with ErrNoIdentity in place of the boolean.
func GetOrError[T any](ctx context.Context) (T, error) {
	v, ok := Get[T](ctx)
	if !ok {
		return v, ErrNoIdentity
	}
	return v, nil
}
