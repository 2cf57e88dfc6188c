package cmd

import (
	"barsim/strategies"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategies and their default parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := strategies.NewRegistry()
		out := cmd.OutOrStdout()
		for _, tag := range registry.Tags() {
			reg, _ := registry.Lookup(tag)
			keys := make([]string, 0, len(reg.Defaults))
			for k := range reg.Defaults {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			defaults := make([]string, len(keys))
			for i, k := range keys {
				defaults[i] = fmt.Sprintf("%s=%v", k, reg.Defaults[k])
			}
			fmt.Fprintf(out, "%-16s %s\n", tag, reg.Description)
			fmt.Fprintf(out, "%-16s defaults: %s\n", "", strings.Join(defaults, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
