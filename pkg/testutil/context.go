package testutil

import (
	"context"
	"time"

	id "bindery/pkg/domain"
	"bindery/pkg/requestcontext"
)

// CallerContext builds a context authenticated as the given account, the way
// the auth middleware would.
func CallerContext(caller id.AccountID) context.Context {
	return requestcontext.WithCallerID(context.Background(), caller)
}

// CallerContextAt additionally pins the request time, for tests exercising
// proposal timestamps and the accept-time boundary.
func CallerContextAt(caller id.AccountID, now time.Time) context.Context {
	return requestcontext.WithTime(CallerContext(caller), now)
}
