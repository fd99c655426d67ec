package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"layered-remap/internal/app"
)

type pruneOptions struct {
	Project  string
	KeepLast int
	KeepDays int
	Protect  []string
	DryRun   bool
}

func newCacheCommand(settings *settingsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the unified table cache",
	}
	cmd.AddCommand(newPruneCommand(settings))
	return cmd
}

func newPruneCommand(settings *settingsOptions) *cobra.Command {
	opts := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune cached unified tables based on retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), cmd, opts, settings.settings(cmd))
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project file used to locate the cache")
	cmd.Flags().IntVar(&opts.KeepLast, "keep-last", 0, "Keep last N tables per label")
	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", 0, "Keep tables newer than N days")
	cmd.Flags().StringSliceVar(&opts.Protect, "protect", nil, "Protect versions or labels from pruning")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report prune actions without deleting")

	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("keep_last", cmd.Flags().Lookup("keep-last"))
	_ = viper.BindPFlag("keep_days", cmd.Flags().Lookup("keep-days"))
	_ = viper.BindPFlag("protect", cmd.Flags().Lookup("protect"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runPrune(ctx context.Context, cmd *cobra.Command, opts pruneOptions, settings app.Settings) error {
	service := newAppService()
	result, err := service.PruneCache(ctx, app.PruneRequest{
		ProjectPath: resolveString(cmd, opts.Project, "project", "project"),
		Settings:    settings,
		KeepLast:    resolveInt(cmd, opts.KeepLast, "keep_last", "keep-last"),
		KeepDays:    resolveInt(cmd, opts.KeepDays, "keep_days", "keep-days"),
		Protect:     resolveStrings(cmd, opts.Protect, "protect", "protect"),
		DryRun:      resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry-run: keep=%d delete=%d\n", result.KeepCount, result.DeleteCount)
		for _, version := range result.Deleted {
			fmt.Printf("- %s\n", version)
		}
		return nil
	}
	fmt.Printf("pruned tables: %d\n", result.DeleteCount)
	return nil
}
