package auth

import "context"

type accountIDKey struct{}

// WithAccountID returns a context carrying the authenticated account id.
func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

// AccountIDFrom returns the account id stored by WithAccountID.
func AccountIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey{}).(int64)
	return id, ok
}
