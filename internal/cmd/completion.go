package cmd

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

type completionGenerator func(root *cobra.Command, out io.Writer, descriptions bool) error

var completionShells = map[string]completionGenerator{
	"bash": func(root *cobra.Command, out io.Writer, d bool) error {
		return root.GenBashCompletionV2(out, d)
	},
	"zsh": func(root *cobra.Command, out io.Writer, d bool) error {
		if d {
			return root.GenZshCompletion(out)
		}
		return root.GenZshCompletionNoDesc(out)
	},
	"fish": func(root *cobra.Command, out io.Writer, d bool) error {
		return root.GenFishCompletion(out, d)
	},
	"powershell": func(root *cobra.Command, out io.Writer, d bool) error {
		if d {
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return root.GenPowerShellCompletion(out)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for bash, zsh, fish or powershell.

  source <(pipectl completion bash)
  pipectl completion zsh > "${fpath[1]}/_pipectl"
  pipectl completion fish > ~/.config/fish/completions/pipectl.fish
  pipectl completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             shellNames(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		noDesc, _ := cmd.Flags().GetBool("no-descriptions")
		return completionShells[args[0]](cmd.Root(), cmd.OutOrStdout(), !noDesc)
	},
}

func shellNames() []string {
	names := make([]string, 0, len(completionShells))
	for name := range completionShells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	completionCmd.Flags().Bool("no-descriptions", false, "omit command descriptions from completions")
	rootCmd.AddCommand(completionCmd)
}
