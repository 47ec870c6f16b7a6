// Package telemetry reports fatal pipeline errors to Sentry when a DSN is
// configured. Without a DSN every function is a no-op.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Options configures error reporting.
type Options struct {
	DSN         string
	Environment string
	Release     string
	// Transport replaces the HTTP transport; tests use it to capture events.
	Transport sentry.Transport
}

// Init initializes the Sentry SDK. An empty DSN without a transport leaves
// reporting disabled.
func Init(opts Options) error {
	if opts.DSN == "" && opts.Transport == nil {
		enabled.Store(false)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Transport:        opts.Transport,
		Environment:      opts.Environment,
		Release:          "encheres@" + opts.Release,
		SampleRate:       1.0,
		AttachStacktrace: true,
		ServerName:       "", // keep the hostname out of events
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	enabled.Store(true)
	return nil
}

// Enabled reports whether events are sent.
func Enabled() bool {
	return enabled.Load()
}

// CaptureError reports err with tags describing where it happened.
func CaptureError(err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events before the process exits.
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}
