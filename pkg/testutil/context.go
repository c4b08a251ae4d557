package testutil

import (
	"context"
	"time"

	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

// FixedClock is an arbitrary but stable instant for time-dependent tests.
var FixedClock = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

// Ctx returns a context pinned to FixedClock with the given caller.
func Ctx(caller domain.Address) context.Context {
	ctx := requestcontext.WithTime(context.Background(), FixedClock)
	return requestcontext.WithCaller(ctx, caller)
}

// CtxAt returns a context pinned to a specific instant.
func CtxAt(caller domain.Address, at time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), at)
	return requestcontext.WithCaller(ctx, caller)
}
