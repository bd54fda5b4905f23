package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type completionShell struct {
	name    string
	install string
	gen     func(root *cobra.Command, w io.Writer, descriptions bool) error
}

var completionShells = []completionShell{
	{
		name:    "bash",
		install: "amldeploy completion bash > ~/.local/share/bash-completion/completions/amldeploy",
		gen: func(root *cobra.Command, w io.Writer, descriptions bool) error {
			return root.GenBashCompletionV2(w, descriptions)
		},
	},
	{
		name:    "zsh",
		install: `amldeploy completion zsh > "${fpath[1]}/_amldeploy"`,
		gen: func(root *cobra.Command, w io.Writer, descriptions bool) error {
			if descriptions {
				return root.GenZshCompletion(w)
			}
			return root.GenZshCompletionNoDesc(w)
		},
	},
	{
		name:    "fish",
		install: "amldeploy completion fish > ~/.config/fish/completions/amldeploy.fish",
		gen: func(root *cobra.Command, w io.Writer, descriptions bool) error {
			return root.GenFishCompletion(w, descriptions)
		},
	},
	{
		name:    "powershell",
		install: "amldeploy completion powershell >> $PROFILE",
		gen: func(root *cobra.Command, w io.Writer, descriptions bool) error {
			if descriptions {
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return root.GenPowerShellCompletion(w)
		},
	},
}

// Completion returns the command that prints a shell completion script.
func Completion() *cobra.Command {
	var noDescriptions bool

	names := make([]string, 0, len(completionShells))
	var long strings.Builder
	long.WriteString("Print a completion script for amldeploy to stdout.\n\nInstall it once per shell:\n")
	for _, s := range completionShells {
		names = append(names, s.name)
		fmt.Fprintf(&long, "\n  %-11s %s", s.name, s.install)
	}
	long.WriteString("\n\nStart a new shell afterwards.\n")

	cmd := &cobra.Command{
		Use:                   "completion [" + strings.Join(names, "|") + "]",
		Short:                 "Generate shell completion scripts",
		Long:                  long.String(),
		DisableFlagsInUseLine: true,
		ValidArgs:             names,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range completionShells {
				if s.name == args[0] {
					return s.gen(cmd.Root(), cmd.OutOrStdout(), !noDescriptions)
				}
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
	cmd.Flags().BoolVar(&noDescriptions, "no-descriptions", false, "omit command descriptions from completions")
	return cmd
}
