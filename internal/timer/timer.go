// Package timer raises the OS scheduler's timer resolution for the
// duration of a session, so the throttler sender gets 1ms-granularity
// sleeps. On platforms without a resolution knob this is a no-op (see
// timer_other.go).
package timer

import "time"

// Session represents an active timer-resolution request; call End to
// release it.
type Session struct {
	end func()
}

// End releases the resolution request.
func (s Session) End() {
	if s.end != nil {
		s.end()
	}
}

// Begin raises timer resolution to at least res for as long as the
// returned Session is held.
func Begin(res time.Duration) Session {
	return beginPlatform(res)
}
