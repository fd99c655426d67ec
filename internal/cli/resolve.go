package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"layered-remap/internal/app"
)

type resolveOptions struct {
	Project         string
	OutputDir       string
	SkipJar         bool
	PublishRepo     string
	PublishGroup    string
	PublishArtifact string
}

func newResolveCommand(settings *settingsOptions) *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the layer list into a unified mapping table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, opts, settings.settings(cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project file path (defaults to layered-remap.yaml)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")
	cmd.Flags().BoolVar(&opts.SkipJar, "skip-jar", false, "Do not write the packaged mapping jar")
	cmd.Flags().StringVar(&opts.PublishRepo, "publish-repo", "", "Publish the mapping jar to a repository (s3:// or a directory)")
	cmd.Flags().StringVar(&opts.PublishGroup, "publish-group", "layered-remap", "Maven group of the published mapping jar")
	cmd.Flags().StringVar(&opts.PublishArtifact, "publish-artifact", "mappings", "Maven artifact id of the published mapping jar")

	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("skip_jar", cmd.Flags().Lookup("skip-jar"))
	_ = viper.BindPFlag("publish_repo", cmd.Flags().Lookup("publish-repo"))
	_ = viper.BindPFlag("publish_group", cmd.Flags().Lookup("publish-group"))
	_ = viper.BindPFlag("publish_artifact", cmd.Flags().Lookup("publish-artifact"))

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts resolveOptions, settings app.Settings) error {
	service := newAppService()
	result, err := service.Resolve(ctx, app.ResolveRequest{
		ProjectPath:     resolveString(cmd, opts.Project, "project", "project"),
		OutputDir:       resolveString(cmd, opts.OutputDir, "output", "output"),
		Settings:        settings,
		SkipJar:         resolveBool(cmd, opts.SkipJar, "skip_jar", "skip-jar"),
		PublishRepo:     resolveString(cmd, opts.PublishRepo, "publish_repo", "publish-repo"),
		PublishGroup:    resolveString(cmd, opts.PublishGroup, "publish_group", "publish-group"),
		PublishArtifact: resolveString(cmd, opts.PublishArtifact, "publish_artifact", "publish-artifact"),
	})
	if err != nil {
		return err
	}
	source := "built"
	if result.CacheHit {
		source = "cached"
	}
	fmt.Printf("resolved: %s (%s, %s)\n", result.Version, result.Label, source)
	fmt.Printf("coordinate version: %s\n", result.CoordinateVersion)
	fmt.Printf("classes=%d fields=%d methods=%d parameters=%d\n",
		result.Stats.Classes, result.Stats.Fields, result.Stats.Methods, result.Stats.Parameters)
	if result.Published != "" {
		fmt.Printf("published: %s\n", result.Published)
	}
	return nil
}
