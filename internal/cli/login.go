package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mavrell/drumbeat/internal/config"
	"github.com/mavrell/drumbeat/internal/logger"
	"github.com/mavrell/drumbeat/pkg/browser"
)

var loginFlags struct {
	loginURL string
	session  string
	username string
	password string
	headless bool
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Perform the credential login and persist the session state",
	Long: `Perform the credential login in a throwaway browser and write the
resulting session state to disk. A running drumbeat process watching
the same session file picks the refreshed state up without restarting.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.loginURL, "login-url", "", "URL of the login page")
	loginCmd.Flags().StringVar(&loginFlags.session, "session", "", "path of the persisted session state")
	loginCmd.Flags().StringVar(&loginFlags.username, "username", "", "login username")
	loginCmd.Flags().StringVar(&loginFlags.password, "password", "", "login password")
	loginCmd.Flags().BoolVar(&loginFlags.headless, "headless", true, "run the browser headless")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if loginFlags.loginURL != "" {
		cfg.Target.LoginURL = loginFlags.loginURL
	}
	if loginFlags.session != "" {
		cfg.Session.StatePath = loginFlags.session
	}
	if loginFlags.username != "" {
		cfg.Session.Username = loginFlags.username
	}
	if loginFlags.password != "" {
		cfg.Session.Password = loginFlags.password
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = loginFlags.headless
	}
	if cfg.Session.Password == "" {
		cfg.Session.Password = os.Getenv("DRUMBEAT_PASSWORD")
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := browser.Bootstrap(ctx,
		browser.Options{
			Headless:    cfg.Browser.Headless,
			NoSandbox:   cfg.Browser.NoSandbox,
			ChromePath:  cfg.Browser.ChromePath,
			UserDataDir: cfg.Browser.UserDataDir,
		},
		browser.LoginForm{
			URL:      cfg.Target.LoginURL,
			Username: cfg.Target.Selectors.Username,
			Password: cfg.Target.Selectors.Password,
			Submit:   cfg.Target.Selectors.Submit,
		},
		browser.Target{
			URL:            cfg.Target.URL,
			Surface:        cfg.Target.Selectors.Surface,
			NavTimeout:     time.Duration(cfg.Agents.NavTimeoutSeconds) * time.Second,
			SurfaceTimeout: time.Duration(cfg.Agents.SurfaceTimeoutSeconds) * time.Second,
		},
		browser.Credentials{
			Username: cfg.Session.Username,
			Password: cfg.Session.Password,
		},
		log.GetZerolog(),
	)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store := browser.NewSessionStore(cfg.Session.StatePath, log.GetZerolog())
	if err := store.Save(state); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	fmt.Printf("Session state saved to: %s\n", store.Path())
	return nil
}
