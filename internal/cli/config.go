package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Goraved/aqareport/internal/config"
	aqaerrors "github.com/Goraved/aqareport/internal/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or show the configuration",
	}

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file against the schema",
		Long: `Validates a config file against the JSON schema and the value rules,
and reports unknown keys as warnings. Without a file, the config found
from the working directory is validated.`,
		Args: cobra.MaximumNArgs(1),
		// Validation reports configuration errors itself.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.Discover(".")
			}
			if path == "" {
				return aqaerrors.NotFound("config file", ".aqareport.yaml")
			}
			_, warnings, err := config.LoadAndValidate(path)
			for _, w := range warnings {
				a.out.Warning("%s", w)
			}
			if err != nil {
				return configError(err)
			}
			a.out.Success("%s is valid", path)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Long:  `Prints the configuration after defaults, environment variables and flags are applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(a.out.Out())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}
