package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [form]",
	Short: "List declared forms or print one declaration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("format", "yaml", "output format (yaml, json)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		store, err := loadForms(cfg.FormsDir)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), []byte(strings.Join(store.Names(), "\n")))
	}

	decl, err := resolveDeclaration(cmd.Context(), cfg, declarationSource{form: args[0]})
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := encode(format, viewOf(decl))
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), data)
}
