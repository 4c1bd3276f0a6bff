// Package safego launches background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn on a new goroutine, recovering and logging any panic instead of
// letting it take the process down. Use it for fire-and-forget work (audit
// shipping, notification sends) where a lost panic would otherwise kill the
// worker silently.
func Go(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		slog.Error("panic in background goroutine", "panic", r)
	}
}
