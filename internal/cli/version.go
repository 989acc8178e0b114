package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/report"
)

func newVersionCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			a.out.Println("aqareport %s", Version)
			if !verbose {
				return
			}
			info := report.ReadToolInfo()
			a.out.Println("go: %s", info.GoVersion)
			for _, name := range sortedNames(info.Packages) {
				a.out.Println("%s: %s", name, info.Packages[name])
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print the Go version and library versions")
	return cmd
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
