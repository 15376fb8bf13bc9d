// pkg/db/context.go
package db

import "context"

type ctxKey int

const exclusiveTxKey ctxKey = iota

// markExclusive tags a context as running inside an exclusive transaction.
func markExclusive(ctx context.Context) context.Context {
	return context.WithValue(ctx, exclusiveTxKey, true)
}

// inExclusive reports whether the context is already inside an exclusive
// transaction. Submitting queue work from there would deadlock the single
// consumer, so both Submit and RunExclusive reject it.
func inExclusive(ctx context.Context) bool {
	v, _ := ctx.Value(exclusiveTxKey).(bool)
	return v
}
