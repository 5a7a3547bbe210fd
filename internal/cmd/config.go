package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/config"
	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit pipectl configuration",
	Long: `Manage pipectl configuration stored at $PIPECTL_HOME/config.yaml
(default ~/.pipectl). A config.toml is read when no config.yaml exists.

Configuration includes:
  • Backend address and request timeout
  • Poll interval
  • Logging settings
  • Default output format

Examples:
  # View the effective configuration (file, environment and flags applied)
  pipectl config view

  # Write a default configuration file
  pipectl config init

  # Get or set a single value in the config file
  pipectl config get api_url
  pipectl config set poll_interval 2s

  # Show configuration file path
  pipectl config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  `Print one value of the effective configuration using dot notation (e.g., log.level).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Long:  `Set one value in the config file using dot notation (e.g., log.level debug).`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}

// configView renders a configuration as YAML for the text format
type configView struct {
	*config.Config
}

func (v configView) String() string {
	data, err := config.Encode(v.Config, "config.yaml")
	if err != nil {
		return err.Error()
	}
	header := "# defaults only, no config file found\n"
	if v.Source != "" {
		header = "# " + v.Source + "\n"
	}
	return header + strings.TrimRight(string(data), "\n")
}

func runConfigView(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	f, err := rt.Formatter()
	if err != nil {
		return err
	}
	if rt.Config.Output.Format == "text" {
		return f.Format(configView{rt.Config})
	}
	return f.Format(rt.Config)
}

func configPath(cmd *cobra.Command) (string, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to create command context: %w", err)
	}
	if cc.ConfigPath != "" {
		return cc.ConfigPath, nil
	}
	return config.DefaultPath(), nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	written, err := config.Init(path, force)
	if _, statErr := os.Stat(path); err != nil && statErr == nil && !force && tui.ShouldPrompt() {
		overwrite, promptErr := tui.PromptForConfirmation(fmt.Sprintf("%s exists. Overwrite it with defaults?", path), false)
		if promptErr != nil {
			return promptErr
		}
		if !overwrite {
			return nil
		}
		written, err = config.Init(path, true)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", written)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	value, err := getConfigValue(rt.Config, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path, err := configPath(cmd)
	if err != nil {
		return err
	}

	// Only the file is edited; environment and flags stay out of it
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a value from the config using dot notation
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "api_url":
		return cfg.APIURL, nil
	case "poll_interval":
		return cfg.PollInterval.String(), nil
	case "request_timeout":
		return cfg.RequestTimeout.String(), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "log.file":
		return cfg.Log.File, nil
	case "output.format":
		return cfg.Output.Format, nil
	case "output.no_color":
		return strconv.FormatBool(cfg.Output.NoColor), nil
	case "telemetry.endpoint":
		return cfg.Telemetry.Endpoint, nil
	case "telemetry.insecure":
		return strconv.FormatBool(cfg.Telemetry.Insecure), nil
	case "telemetry.sample_rate":
		return strconv.FormatFloat(cfg.Telemetry.SampleRate, 'g', -1, 64), nil
	default:
		return "", errors.NewConfigInvalidError(key, "unknown configuration key")
	}
}

// setConfigValue sets a value in the config using dot notation
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "api_url":
		cfg.APIURL = value
	case "poll_interval", "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.NewConfigInvalidError(key, err.Error())
		}
		if key == "poll_interval" {
			cfg.PollInterval = config.Duration{Duration: d}
		} else {
			cfg.RequestTimeout = config.Duration{Duration: d}
		}
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "log.file":
		cfg.Log.File = value
	case "output.format":
		cfg.Output.Format = value
	case "output.no_color":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.NewConfigInvalidError(key, err.Error())
		}
		cfg.Output.NoColor = b
	case "telemetry.endpoint":
		cfg.Telemetry.Endpoint = value
	case "telemetry.insecure":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.NewConfigInvalidError(key, err.Error())
		}
		cfg.Telemetry.Insecure = b
	case "telemetry.sample_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.NewConfigInvalidError(key, err.Error())
		}
		cfg.Telemetry.SampleRate = f
	default:
		return errors.NewConfigInvalidError(key, "unknown configuration key")
	}
	return nil
}
