package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Bootstrap performs the initial credential login in a throwaway
// browser and returns the resulting session blob. Success is confirmed
// the same way the agents confirm a healthy connection: the target's
// submission surface becomes reachable after the login submit.
//
// It is invoked exactly once per session lifetime, only when no
// persisted SessionState exists.
func Bootstrap(ctx context.Context, opts Options, form LoginForm, target Target, creds Credentials, logger zerolog.Logger) (SessionState, error) {
	log := logger.With().Str("component", "bootstrap").Logger()

	if creds.Username == "" || creds.Password == "" {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: "credentials required for initial login",
		}
	}

	process := NewProcessManager(opts)
	browser, err := process.Launch()
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to start login browser: %v", err),
			Err:     err,
		}
	}
	defer process.Kill()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to create login page: %v", err),
			Err:     err,
		}
	}

	log.Info().Str("url", form.URL).Msg("Starting initial login")

	nav := page.Context(ctx).Timeout(target.NavTimeout)
	if err := nav.Navigate(form.URL); err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to open login page: %v", err),
			Err:     err,
		}
	}

	wait := page.Context(ctx).Timeout(target.SurfaceTimeout)
	userElem, err := wait.Element(form.Username)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("login form not reachable: %v", err),
			Err:     err,
		}
	}
	passElem, err := wait.Element(form.Password)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("password input not reachable: %v", err),
			Err:     err,
		}
	}

	if err := userElem.Input(creds.Username); err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to fill username: %v", err),
			Err:     err,
		}
	}
	if err := passElem.Input(creds.Password); err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to fill password: %v", err),
			Err:     err,
		}
	}

	// Click submit; fall back to pressing Enter in the password field
	// when the button cannot be driven.
	if err := submitLogin(wait, form); err != nil {
		log.Debug().Err(err).Msg("Submit click failed, pressing Enter")
		if err := passElem.Focus(); err == nil {
			if err := wait.Keyboard.Press(input.Enter); err != nil {
				return nil, &Error{
					Code:    ErrCodeAuth,
					Message: fmt.Sprintf("failed to submit login form: %v", err),
					Err:     err,
				}
			}
		}
	}

	// Confirm login by opening the target directly and waiting for the
	// submission surface; a failed login lands back on the login form.
	if err := nav.Navigate(target.URL); err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to open target after login: %v", err),
			Err:     err,
		}
	}
	if _, err := page.Context(ctx).Timeout(target.SurfaceTimeout).Element(target.Surface); err != nil {
		if _, stillLogin := page.Timeout(readyProbeTimeout).Element(form.Username); stillLogin == nil {
			return nil, &Error{
				Code:    ErrCodeAuth,
				Message: "login rejected: login form still present",
			}
		}
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("could not confirm login: %v", err),
			Err:     err,
		}
	}

	cookies, err := browser.GetCookies()
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to capture session: %v", err),
			Err:     err,
		}
	}

	state, err := encodeState(cookies)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeAuth,
			Message: fmt.Sprintf("failed to serialize session: %v", err),
			Err:     err,
		}
	}

	log.Info().Int("cookies", len(cookies)).Msg("Login succeeded, session captured")
	return state, nil
}

func submitLogin(page *rod.Page, form LoginForm) error {
	elem, err := page.Element(form.Submit)
	if err != nil {
		return err
	}
	return elem.Click(proto.InputMouseButtonLeft, 1)
}
