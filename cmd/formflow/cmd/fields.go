package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/openapi"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <openapi-file> [operation-id]",
	Short: "Derive form fields from an OpenAPI operation",
	Long: `Derive prints the field declarations and validation rules formflow builds
from the request body of an OpenAPI operation. Without an operation id it lists
the operations available in the document.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().String("format", "yaml", "output format (yaml, json)")
}

func runFields(cmd *cobra.Command, args []string) error {
	doc, err := openapi.LoadFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return writeOutput(cmd.OutOrStdout(), []byte(strings.Join(doc.Operations(), "\n")))
	}

	decl, err := openapi.Derive(doc, args[1])
	if err != nil {
		return fmt.Errorf("derive %s: %w", args[1], err)
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := encode(format, viewOf(decl))
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), data)
}
