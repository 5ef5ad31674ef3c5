package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/droidplan/src/output"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [config|configuration|plan|resolved]",
	Short:     "Print a JSON Schema",
	Long:      "Print the JSON Schema of the config file or of resolve's json output.\n\nAvailable: " + strings.Join(output.SchemaNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: output.SchemaNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := output.JSONSchema(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
