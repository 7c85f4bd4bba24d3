package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/analytics"
	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/terminal"
	"github.com/goliatone/go-formflow/pkg/transform"
)

var runCmd = &cobra.Command{
	Use:   "run [form]",
	Short: "Fill in a form interactively",
	Long: `Run prompts for every visible field of a form, validates the answers and
prints the submitted values. Progress is saved under an instance id so an
interrupted session can be resumed with --instance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runForm,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("instance", "", "instance id to resume or create")
	runCmd.Flags().String("openapi", "", "OpenAPI document to derive the form from")
	runCmd.Flags().String("operation", "", "OpenAPI operation id to derive the form from")
	runCmd.Flags().String("format", "json", "output format for submitted values (json, yaml)")
	runCmd.Flags().Bool("nested", false, "expand dotted field ids into nested objects")
	runCmd.Flags().Bool("keep", false, "keep the saved state after a successful submission")
}

func runForm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := declarationSource{}
	src.openAPI, _ = cmd.Flags().GetString("openapi")
	src.operation, _ = cmd.Flags().GetString("operation")
	if len(args) > 0 {
		src.form = args[0]
	}
	if src.form == "" && src.operation == "" {
		return errors.New("a form name or --operation is required")
	}
	decl, err := resolveDeclaration(ctx, cfg, src)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	states, err := store.New(ctx, db, store.WithLogger(logger))
	if err != nil {
		return err
	}

	instanceID, _ := cmd.Flags().GetString("instance")
	orch := orchestrator.New(orchestrator.WithLogger(logger))
	defer orch.Close()

	inst, instanceID, resumed, err := mountInstance(ctx, orch, states, decl, instanceID, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Runtime.Autosave {
		defer states.Autosave(ctx, instanceID, inst)()
	}
	logger.Info("form session started",
		slog.String("form", decl.Name),
		slog.String("instance", instanceID),
		slog.Bool("resumed", resumed),
	)

	session, err := terminal.New(
		terminal.WithPromptDriver(terminal.NewSurveyDriver(cmd.ErrOrStderr())),
		terminal.WithChoices(decl.Choices()),
		terminal.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	result, err := session.Run(ctx, inst)
	if err != nil {
		if saveErr := states.SaveInstance(context.WithoutCancel(ctx), instanceID, inst); saveErr != nil {
			logger.Warn("form state save failed", slog.String("instance", instanceID), slog.Any("error", saveErr))
		}
		return fmt.Errorf("session %s: %w", instanceID, err)
	}

	if keep, _ := cmd.Flags().GetBool("keep"); !keep {
		if err := states.Delete(ctx, instanceID); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn("form state cleanup failed", slog.String("instance", instanceID), slog.Any("error", err))
		}
	}

	values := result.Values
	if nested, _ := cmd.Flags().GetBool("nested"); nested {
		values, err = transform.Expand(values)
		if err != nil {
			return err
		}
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := encode(format, values)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), data)
}

// mountInstance builds the instance for decl, restoring saved state when
// instanceID names one, and mounts it on orch. It reports the id used and
// whether the state was resumed.
func mountInstance(ctx context.Context, orch *orchestrator.Orchestrator, states *store.Store, decl schema.Declaration, instanceID string, cfg *config.Config, logger *slog.Logger) (*form.Instance, string, bool, error) {
	opts := []form.Option{
		form.WithLogger(logger),
		form.WithAnalytics(analytics.Log(logger, slog.LevelDebug)),
		form.WithHistoryLimit(cfg.Runtime.HistoryLimit),
		form.WithMaxCascade(cfg.Runtime.MaxCascade),
	}

	resumed := false
	if instanceID != "" {
		saved, err := states.Load(ctx, instanceID)
		switch {
		case err == nil:
			opts = append(opts, form.WithPersisted(saved))
			resumed = true
		case !errors.Is(err, store.ErrNotFound):
			return nil, "", false, err
		}
	}

	inst, err := decl.New(opts...)
	if err != nil {
		return nil, "", false, err
	}

	if resumed {
		err = inst.Resume()
	} else {
		err = inst.Init()
	}
	if err != nil {
		return nil, "", false, err
	}

	if instanceID == "" {
		instanceID, err = orch.MountNew(inst)
	} else {
		err = orch.Mount(instanceID, inst)
	}
	if err != nil {
		return nil, "", false, err
	}
	return inst, instanceID, resumed, nil
}
