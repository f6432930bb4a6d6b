package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ProcessManager owns one Chrome process and its CDP connection
type ProcessManager struct {
	opts      Options
	launcher  *launcher.Launcher
	browser   *rod.Browser
	mu        sync.Mutex
	isRunning bool
}

// NewProcessManager creates a process manager
func NewProcessManager(opts Options) *ProcessManager {
	return &ProcessManager{opts: opts}
}

// Launch spawns Chrome and connects to its CDP endpoint
func (pm *ProcessManager) Launch() (*rod.Browser, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.isRunning {
		return pm.browser, nil
	}

	if err := pm.ensureUserDataDir(); err != nil {
		return nil, &Error{
			Code:    ErrCodeContext,
			Message: fmt.Sprintf("failed to create user data directory: %v", err),
			Err:     err,
		}
	}

	l := launcher.New().
		Headless(pm.opts.Headless).
		UserDataDir(pm.opts.UserDataDir)

	if pm.opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	if pm.opts.ChromePath != "" {
		l = l.Bin(pm.opts.ChromePath)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeContext,
			Message: fmt.Sprintf("failed to launch Chrome: %v", err),
			Err:     err,
		}
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &Error{
			Code:    ErrCodeContext,
			Message: fmt.Sprintf("failed to connect to CDP: %v", err),
			Err:     err,
		}
	}

	pm.launcher = l
	pm.browser = browser
	pm.isRunning = true

	return browser, nil
}

// Kill terminates the Chrome process
func (pm *ProcessManager) Kill() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.isRunning {
		return nil
	}

	if pm.browser != nil {
		_ = pm.browser.Close()
		pm.browser = nil
	}
	if pm.launcher != nil {
		pm.launcher.Kill()
		pm.launcher = nil
	}

	pm.isRunning = false
	return nil
}

// IsRunning checks if the Chrome process is running
func (pm *ProcessManager) IsRunning() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.isRunning
}

// ensureUserDataDir creates the user data directory if needed
func (pm *ProcessManager) ensureUserDataDir() error {
	if pm.opts.UserDataDir == "" {
		pm.opts.UserDataDir = filepath.Join(os.TempDir(), "drumbeat-profile")
	}
	return os.MkdirAll(pm.opts.UserDataDir, 0755)
}
