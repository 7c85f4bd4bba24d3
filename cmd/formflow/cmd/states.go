package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/store"
)

var statesCmd = &cobra.Command{
	Use:   "states [form]",
	Short: "List saved form sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStates,
}

var statesDeleteCmd = &cobra.Command{
	Use:   "delete <instance>",
	Short: "Delete a saved form session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatesDelete,
}

var statesShowCmd = &cobra.Command{
	Use:   "show <instance>",
	Short: "Print the saved state of a form session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatesShow,
}

func init() {
	rootCmd.AddCommand(statesCmd)
	statesCmd.AddCommand(statesDeleteCmd)
	statesCmd.AddCommand(statesShowCmd)
	statesShowCmd.Flags().String("format", "yaml", "output format (yaml, json)")
}

func openStore(cmd *cobra.Command) (*store.Store, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := store.Open(cfg.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	states, err := store.New(cmd.Context(), db, store.WithLogger(newLogger(cfg.Log, cmd.ErrOrStderr())))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return states, db.Close, nil
}

func runStates(cmd *cobra.Command, args []string) error {
	states, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	formName := ""
	if len(args) > 0 {
		formName = args[0]
	}
	records, err := states.List(cmd.Context(), formName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tFORM\tUPDATED")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", record.InstanceID, record.Form, record.Updated().Format(time.RFC3339))
	}
	return w.Flush()
}

func runStatesDelete(cmd *cobra.Command, args []string) error {
	states, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()
	return states.Delete(cmd.Context(), args[0])
}

func runStatesShow(cmd *cobra.Command, args []string) error {
	states, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	saved, err := states.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := encode(format, saved)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), data)
}
