// Package obs times operations and logs their outcome.
package obs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type ctxKey string

// RequestIDKey carries the request ID of an HTTP call in a context.
const RequestIDKey ctxKey = "req_id"

// Time starts timing the operation name. Call the returned function with a
// pointer to the operation's error, usually deferred.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		entry := log.WithFields(log.Fields{
			"op":     name,
			"dur_ms": time.Since(start).Milliseconds(),
		})
		if reqID != "" {
			entry = entry.WithField("req_id", reqID)
		}
		if errp != nil && *errp != nil {
			entry.WithError(*errp).Warn("Operation failed")
			return
		}
		entry.Debug("Operation done")
	}
}
