package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pipectl version",
	Long: `Print the pipectl version. With --verbose the commit, build date,
Go toolchain and platform are included. --format json or yaml prints
every field.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "include commit, build date and platform")
	versionCmd.Flags().Bool("json", false, "shorthand for --format json")
	rootCmd.AddCommand(versionCmd)
}

// version does not load the config file so it works with a broken one
func runVersion(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	format := cc.Format
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = ux.FormatJSON
	}

	info := version.GetInfo()
	var payload any = "pipectl " + info.Short()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		payload = info
	}
	if format != "" && format != ux.FormatText {
		payload = info
	}

	f, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout(), NoColor: cc.NoColor})
	if err != nil {
		return err
	}
	return f.Format(payload)
}
