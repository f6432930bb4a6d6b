package agent

import "context"

// Conn is a live channel to the target resource. Exactly one agent
// owns a Conn; during the rotation overlap window an agent may hold a
// primary plus a not-yet-promoted shadow.
type Conn interface {
	// ID identifies the connection in logs and events
	ID() string
	// Open navigates to the target and waits for the submission
	// surface. Reused to reconnect the same connection in place.
	Open(ctx context.Context) error
	// Ready reports whether the surface is interactable right now
	Ready(ctx context.Context) bool
	// Post injects and submits one message, newlines intact
	Post(ctx context.Context, text string) error
	// Close destroys the connection
	Close() error
}

// Dialer creates connections from the shared session context. Dial is
// safe for concurrent use by multiple agents.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
