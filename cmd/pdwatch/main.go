package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/pdwatch/internal/adapters/source/jsonbin"
	"github.com/evanschultz/pdwatch/internal/adapters/storage/sqlite"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/config"
	"github.com/evanschultz/pdwatch/internal/platform"
	"github.com/evanschultz/pdwatch/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// clock and newID feed the app service; tests replace them.
var (
	clock = time.Now
	newID = uuid.NewString
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, newRootCommand(), fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// rootOptions stores the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the pdwatch command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{appName: "pdwatch", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("PDWATCH_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("PDWATCH_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "pdwatch",
		Short:         "Check priority dates against the visa bulletin",
		Long:          "pdwatch evaluates a priority date against the latest visa bulletin and projects the remaining green card timeline.\nRun without a subcommand to open the interactive checker.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newCheckCommand(opts),
		newRefreshCommand(opts),
		newImportCommand(opts),
		newHistoryCommand(opts),
		newBulletinCommand(opts),
		newServeCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// session is the opened runtime shared by one command invocation.
type session struct {
	appName    string
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// resolvePaths resolves platform paths plus the effective config and database locations.
func (o *rootOptions) resolvePaths() (platform.Paths, string, string, bool, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return platform.Paths{}, "", "", false, err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("PDWATCH_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("PDWATCH_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	return paths, configPath, dbPath, dbOverridden, nil
}

// open loads config, starts logging, opens storage and builds the app service.
func (o *rootOptions) open(cmd *cobra.Command, command string) (*session, error) {
	paths, configPath, dbPath, dbOverridden, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(cmd.ErrOrStderr(), o.appName, o.devMode, cfg.Logging, clock)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	s := &session{appName: o.appName, configPath: configPath, cfg: cfg, logger: logger}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}

	logger.Debug("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		s.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	s.repo = repo
	logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path)

	timeout, _ := cfg.Source.TimeoutDuration()
	interval, _ := cfg.Cache.Interval()
	source := jsonbin.New(jsonbin.Options{
		BulletinURL: cfg.Source.BulletinURL,
		PermURL:     cfg.Source.PermURL,
		APIKey:      cfg.Source.APIKey(),
		Timeout:     timeout,
		MaxRetries:  cfg.Source.MaxRetries,
	})
	svc, err := app.NewService(repo, source, newID, clock, app.ServiceConfig{
		Policy:          cfg.Forecast.Policy(),
		RefreshInterval: interval,
		Logger:          logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build service: %w", err)
	}
	s.svc = svc
	return s, nil
}

// Close releases storage and log sinks.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", err)
		}
		s.repo = nil
	}
	_ = s.logger.Close()
}

// runTUI launches the interactive checker.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	s, err := opts.open(cmd, "tui")
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("starting tui program loop")
	m := tui.NewModel(s.svc, tui.WithContext(cmd.Context()))
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	s.logger.Info("command flow complete", "command", "tui")
	return nil
}

// newPathsCommand prints resolved runtime locations.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, configPath, dbPath, _, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			return nil
		},
	}
}

// parseBoolEnv reads one boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// writeLine writes one line, ignoring write errors on the terminal.
func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
