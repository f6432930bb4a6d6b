package browser

import (
	"fmt"
	"time"
)

// Error codes for browser operations
const (
	// ErrCodeAuth marks a failed credential bootstrap. Fatal at startup.
	ErrCodeAuth = "AUTH_FAILED"
	// ErrCodeContext marks a shared session context that could not be
	// opened. Fatal at startup.
	ErrCodeContext = "CONTEXT_INIT"
	// ErrCodeConnection marks a connection that could not be created,
	// opened or reopened. Never fatal in steady state.
	ErrCodeConnection = "CONNECTION"
	// ErrCodeSend marks a failed message submission. Retried in place,
	// then escalates to connection recreation.
	ErrCodeSend = "SEND"
	// ErrCodeNavigation marks a navigation failure
	ErrCodeNavigation = "NAVIGATION"
	// ErrCodeTimeout marks a bounded wait that expired
	ErrCodeTimeout = "TIMEOUT"
)

// Error is a typed browser-layer error
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a browser Error with the given code
func IsCode(err error, code string) bool {
	be, ok := err.(*Error)
	return ok && be.Code == code
}

// SessionState is the persisted authenticated-session blob. It is
// produced by Bootstrap, stored by SessionStore and consumed when a
// SessionContext opens; everything outside this package treats it as
// opaque bytes.
type SessionState []byte

// Target describes the resource a connection drives
type Target struct {
	// URL of the page carrying the submission surface
	URL string
	// Surface is the CSS selector of the submission surface
	Surface string
	// NavTimeout bounds navigation; SurfaceTimeout bounds the wait for
	// the surface to appear after navigation.
	NavTimeout     time.Duration
	SurfaceTimeout time.Duration
}

// Options configures the underlying Chrome process
type Options struct {
	Headless    bool
	NoSandbox   bool
	ChromePath  string
	UserDataDir string
}

// Credentials is the optional pair used only when no persisted
// session state exists
type Credentials struct {
	Username string
	Password string
}

// LoginForm describes the bootstrap login page
type LoginForm struct {
	// URL of the login page
	URL string
	// Selectors for the credential inputs and submit control
	Username string
	Password string
	Submit   string
}
