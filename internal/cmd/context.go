package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/pipectl/internal/config"
	"github.com/felixgeelhaar/pipectl/internal/log"
	"github.com/felixgeelhaar/pipectl/internal/metrics"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/telemetry"
	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/internal/version"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

// CommandContext holds the persistent flags of one invocation.
// Empty values mean "not given"; the config file and environment apply.
type CommandContext struct {
	// Output control
	Quiet   bool
	Format  string
	NoColor bool

	// Backend
	APIURL       string
	PollInterval time.Duration

	// Configuration
	ConfigPath string
	LogLevel   string
	LogFormat  string
	LogFile    string
}

// NewCommandContext extracts command context from cobra.Command flags.
// Commands should call this in their RunE function to get their configuration:
//
//	func runCommand(cmd *cobra.Command, args []string) error {
//		cc, err := NewCommandContext(cmd)
//		if err != nil {
//			return fmt.Errorf("failed to create command context: %w", err)
//		}
//		// Use cc.Format, cc.APIURL, etc.
//	}
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()
	cc := &CommandContext{}
	var err error

	if cc.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if cc.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cc.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	if cc.APIURL, err = flags.GetString("api-url"); err != nil {
		return nil, err
	}
	if cc.PollInterval, err = flags.GetDuration("poll-interval"); err != nil {
		return nil, err
	}
	if cc.ConfigPath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cc.LogLevel, err = flags.GetString("log-level"); err != nil {
		return nil, err
	}
	if cc.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	if cc.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}

	return cc, nil
}

// LoadConfig resolves defaults, the config file, the environment and the
// flags, in increasing precedence, and validates the result
func (cc *CommandContext) LoadConfig(lookup func(string) (string, bool)) (*config.Config, error) {
	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if cc.APIURL != "" {
		cfg.APIURL = cc.APIURL
	}
	if cc.PollInterval != 0 {
		cfg.PollInterval = config.Duration{Duration: cc.PollInterval}
	}
	if cc.LogLevel != "" {
		cfg.Log.Level = cc.LogLevel
	}
	if cc.LogFormat != "" {
		cfg.Log.Format = cc.LogFormat
	}
	if cc.LogFile != "" {
		cfg.Log.File = cc.LogFile
	}
	if cc.Format != "" {
		cfg.Output.Format = cc.Format
	}
	if cc.NoColor {
		cfg.Output.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Runtime is what a command needs once flags and config are resolved
type Runtime struct {
	Config *config.Config
	Logger *log.Logger
	Client *client.Client
	Quiet  bool
	Out    io.Writer
	ErrOut io.Writer

	logOutput log.Output
	tracing   *telemetry.Provider
	span      trace.Span
}

// newRuntime builds the runtime for cmd. With silent set, logs go nowhere
// unless a log file is configured; the TUI owns the terminal.
func newRuntime(cmd *cobra.Command, silent bool) (*Runtime, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cc.LoadConfig(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	output := log.NewOutput(cmd.ErrOrStderr())
	switch {
	case cfg.Log.File != "":
		if output, err = log.OutputFile(cfg.Log.File); err != nil {
			return nil, err
		}
	case silent:
		output = log.OutputDiscard()
	}

	info := version.GetInfo()
	logger := log.New(log.Config{
		Level:          log.ParseLevel(cfg.Log.Level),
		Format:         log.ParseFormat(cfg.Log.Format),
		Output:         output,
		ServiceName:    "pipectl",
		ServiceVersion: info.Version,
	})
	log.SetDefaultLogger(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tracing, err := telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:    "pipectl",
		ServiceVersion: info.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		tracing, _ = telemetry.InitProvider(ctx, telemetry.DefaultConfig())
	}
	ctx, span := telemetry.StartCommandSpan(ctx, cmd.CommandPath())
	cmd.SetContext(ctx)

	c := client.New(cfg.APIURL,
		client.WithTimeout(cfg.RequestTimeout.Duration),
		client.WithUserAgent(info.UserAgent()),
	)

	logger.Debug("configuration resolved",
		"api_url", cfg.APIURL,
		"poll_interval", cfg.PollInterval.String(),
		"config_file", cfg.Source,
	)

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Client:    c,
		Quiet:     cc.Quiet,
		Out:       cmd.OutOrStdout(),
		ErrOut:    cmd.ErrOrStderr(),
		logOutput: output,
		tracing:   tracing,
		span:      span,
	}, nil
}

// Formatter returns the formatter for --format
func (r *Runtime) Formatter() (ux.Formatter, error) {
	return ux.NewFormatter(r.Config.Output.Format, &ux.FormatterOptions{
		Writer:  r.Out,
		NoColor: r.Config.Output.NoColor,
	})
}

// NewController creates a poll controller against the configured backend
func (r *Runtime) NewController(m *metrics.Metrics, opts ...poller.Option) *poller.Controller {
	base := []poller.Option{
		poller.WithInterval(r.Config.PollInterval.Duration),
		poller.WithLogger(r.Logger),
		poller.WithMetrics(m),
	}
	return poller.New(r.Client, append(base, opts...)...)
}

// Close ends the command span, flushes traces and releases the log file
func (r *Runtime) Close() error {
	r.span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return stderrors.Join(r.tracing.Shutdown(ctx), r.logOutput.Close())
}
