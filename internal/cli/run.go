package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mavrell/drumbeat/internal/config"
	"github.com/mavrell/drumbeat/internal/logger"
	"github.com/mavrell/drumbeat/pkg/orchestrator"
)

var runFlags struct {
	target    string
	loginURL  string
	messages  string
	agents    int
	session   string
	username  string
	password  string
	headless  bool
	statusOn  bool
	statusAt  string
	journalOn bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent fleet until interrupted",
	Long: `Run the configured number of agents against the target until the
process receives SIGINT or SIGTERM. If no persisted session state
exists, an initial credential login is performed first.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.target, "target", "", "URL of the page carrying the submission surface")
	runCmd.Flags().StringVar(&runFlags.loginURL, "login-url", "", "URL of the login page for the initial bootstrap")
	runCmd.Flags().StringVar(&runFlags.messages, "messages", "", "corpus descriptor: inline text or a file path")
	runCmd.Flags().IntVar(&runFlags.agents, "agents", 0, "number of concurrent agents (clamped to 1-5)")
	runCmd.Flags().StringVar(&runFlags.session, "session", "", "path of the persisted session state")
	runCmd.Flags().StringVar(&runFlags.username, "username", "", "login username (only used when no session state exists)")
	runCmd.Flags().StringVar(&runFlags.password, "password", "", "login password (only used when no session state exists)")
	runCmd.Flags().BoolVar(&runFlags.headless, "headless", true, "run the browser headless")
	runCmd.Flags().BoolVar(&runFlags.statusOn, "status", false, "serve the status endpoint")
	runCmd.Flags().StringVar(&runFlags.statusAt, "status-addr", "", "status endpoint listen address")
	runCmd.Flags().BoolVar(&runFlags.journalOn, "journal", false, "record per-send outcomes to the journal database")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	validator := config.NewValidator()
	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
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

	orch := orchestrator.New(cfg, log.GetZerolog())
	if err := orch.Run(ctx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	return nil
}

// loadConfig loads the configuration file and overlays any flags the
// user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if runFlags.target != "" {
		cfg.Target.URL = runFlags.target
	}
	if runFlags.loginURL != "" {
		cfg.Target.LoginURL = runFlags.loginURL
	}
	if runFlags.messages != "" {
		cfg.Corpus.Descriptor = runFlags.messages
	}
	if runFlags.agents != 0 {
		cfg.Agents.Count = runFlags.agents
	}
	if runFlags.session != "" {
		cfg.Session.StatePath = runFlags.session
	}
	if runFlags.username != "" {
		cfg.Session.Username = runFlags.username
	}
	if runFlags.password != "" {
		cfg.Session.Password = runFlags.password
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = runFlags.headless
	}
	if cmd.Flags().Changed("status") {
		cfg.Status.Enabled = runFlags.statusOn
	}
	if runFlags.statusAt != "" {
		cfg.Status.Addr = runFlags.statusAt
	}
	if cmd.Flags().Changed("journal") {
		cfg.Journal.Enabled = runFlags.journalOn
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	// Password can come from the environment to keep it out of shell
	// history and the config file.
	if cfg.Session.Password == "" {
		cfg.Session.Password = os.Getenv("DRUMBEAT_PASSWORD")
	}

	return cfg, nil
}
