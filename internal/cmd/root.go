package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/offlinefirst/pattern-replay/internal/buildinfo"
	"github.com/offlinefirst/pattern-replay/pkg/config"
	"github.com/offlinefirst/pattern-replay/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. REPLAYER_REPLAY_INTERVAL_MINUTES.
const EnvPrefix = "REPLAYER"

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger zerolog.Logger
}

// RootCommand owns the cobra tree and the shared application context.
type RootCommand struct {
	cmd    *cobra.Command
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	appCtx *AppContext

	configPath string
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{
		v:      newViper(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	root := &cobra.Command{
		Use:           "replayer",
		Short:         "Record a pointer pattern once and replay it with human-like variance",
		Long:          "replayer records pointer and key input, then replays it periodically with jittered timing,\neased motion and small spatial changes. Moving the pointer during a replay hands control back to you.",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&rc.configPath, "config", "", "Path to config file (default: ./"+config.DefaultFileName+" if present)")
	root.PersistentFlags().String("log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Override log output format (json, console)")
	_ = rc.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = rc.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newRunCommand(rc),
		newRecordCommand(rc),
		newReplayCommand(rc),
		newDoctorCommand(rc),
		newVersionCommand(rc),
	)
	rc.cmd = root
	return rc
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetIO redirects the command's streams, mainly for tests.
func (rc *RootCommand) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	rc.stdin, rc.stdout, rc.stderr = stdin, stdout, stderr
	rc.cmd.SetIn(stdin)
	rc.cmd.SetOut(stdout)
	rc.cmd.SetErr(stderr)
}

// Execute evaluates the supplied arguments and dispatches to a subcommand.
func (rc *RootCommand) Execute(args []string) error {
	rc.cmd.SetArgs(args)
	err := rc.cmd.Execute()
	if err != nil {
		fmt.Fprintf(rc.stderr, "Error: %v\n", err)
	}
	return err
}

// bindFlags maps a command's flags onto config keys. It runs from PreRunE so
// only the executing command's flags are bound.
func (rc *RootCommand) bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := rc.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", flag, err)
		}
	}
	return nil
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(rc.v, &cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("source", cfg.Source).Str("pattern", cfg.Pattern.File).Str("runs_dir", cfg.Paths.RunsDir).Msg("configuration loaded")

	rc.appCtx = &AppContext{Config: cfg, Logger: logger}
	return rc.appCtx, nil
}

func versionString() string {
	v := buildinfo.Version()
	if commit := buildinfo.Commit(); commit != "" {
		v += "+" + commit
	}
	return fmt.Sprintf("%s (go%s/%s)", v, strings.TrimPrefix(runtimeVersion(), "go"), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
