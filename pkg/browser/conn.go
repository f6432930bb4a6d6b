package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// readyProbeTimeout bounds the non-blocking "is the surface
// interactable right now" check. A miss is a skip, not a failure.
const readyProbeTimeout = 2 * time.Second

// Conn is one live channel to the target resource: a single page plus
// the submission surface on it. A Conn is owned by exactly one agent.
type Conn struct {
	id     string
	page   *rod.Page
	target Target
	logger zerolog.Logger
}

func newConn(page *rod.Page, target Target, logger zerolog.Logger) *Conn {
	id, err := gonanoid.New()
	if err != nil {
		id = string(page.TargetID)
	}
	return &Conn{
		id:     id,
		page:   page,
		target: target,
		logger: logger.With().Str("conn", id).Logger(),
	}
}

// ID returns the connection identity
func (c *Conn) ID() string {
	return c.id
}

// Open navigates to the target URL and waits for the submission
// surface to become reachable. It is also used to reconnect the same
// connection in place when rotation has no shadow to promote.
func (c *Conn) Open(ctx context.Context) error {
	page := c.page.Context(ctx).Timeout(c.target.NavTimeout)

	if err := page.Navigate(c.target.URL); err != nil {
		return &Error{
			Code:    ErrCodeNavigation,
			Message: fmt.Sprintf("failed to navigate to %s: %v", c.target.URL, err),
			Err:     err,
		}
	}
	if err := page.WaitLoad(); err != nil {
		return &Error{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("page load timeout: %v", err),
			Err:     err,
		}
	}

	if _, err := c.page.Context(ctx).Timeout(c.target.SurfaceTimeout).Element(c.target.Surface); err != nil {
		return &Error{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("submission surface %q not reachable: %v", c.target.Surface, err),
			Err:     err,
		}
	}

	c.logger.Debug().Str("url", c.target.URL).Msg("Connection open")
	return nil
}

// Ready reports whether the submission surface is currently
// interactable. A false result is a skip condition, never an error.
func (c *Conn) Ready(ctx context.Context) bool {
	elem, err := c.page.Context(ctx).Timeout(readyProbeTimeout).Element(c.target.Surface)
	if err != nil {
		return false
	}
	visible, err := elem.Visible()
	if err != nil {
		return false
	}
	return visible
}

// Post focuses the surface, injects text and submits it. Embedded
// newlines are injected verbatim, never as key presses, so multi-line
// content is committed as one message.
func (c *Conn) Post(ctx context.Context, text string) error {
	page := c.page.Context(ctx).Timeout(c.target.SurfaceTimeout)

	elem, err := page.Element(c.target.Surface)
	if err != nil {
		return &Error{
			Code:    ErrCodeSend,
			Message: fmt.Sprintf("submission surface not found: %v", err),
			Err:     err,
		}
	}
	if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &Error{
			Code:    ErrCodeSend,
			Message: fmt.Sprintf("failed to focus surface: %v", err),
			Err:     err,
		}
	}

	// Replace any leftover draft before injecting
	_ = elem.SelectAllText()

	if err := page.InsertText(text); err != nil {
		return &Error{
			Code:    ErrCodeSend,
			Message: fmt.Sprintf("failed to inject message: %v", err),
			Err:     err,
		}
	}
	if err := page.Keyboard.Press(input.Enter); err != nil {
		return &Error{
			Code:    ErrCodeSend,
			Message: fmt.Sprintf("failed to submit message: %v", err),
			Err:     err,
		}
	}

	return nil
}

// Close destroys the underlying page. The Conn must not be used
// afterwards.
func (c *Conn) Close() error {
	if err := c.page.Close(); err != nil {
		return &Error{
			Code:    ErrCodeConnection,
			Message: fmt.Sprintf("failed to close page: %v", err),
			Err:     err,
		}
	}
	c.logger.Debug().Msg("Connection closed")
	return nil
}
