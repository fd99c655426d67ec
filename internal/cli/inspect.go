package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"layered-remap/internal/app"
)

type inspectOptions struct {
	Path string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a resolve output directory, a mapping file or a jar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", "out", "Output directory, tiny file or jar")
	_ = viper.BindPFlag("inspect_path", cmd.Flags().Lookup("path"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(app.InspectRequest{
		Path: resolveString(cmd, opts.Path, "inspect_path", "path"),
	})
	if err != nil {
		return err
	}

	if result.Report != nil {
		report := result.Report
		fmt.Printf("version: %s\n", report.Version)
		fmt.Printf("label: %s\n", report.Label)
		fmt.Printf("coordinate version: %s\n", report.CoordinateVersion)
		fmt.Printf("layers: %d\n", len(report.Layers))
		for _, layer := range report.Layers {
			fmt.Printf("- %d %s %s\n", layer.Index, layer.Kind, layer.Source)
		}
		for _, warning := range report.Warnings {
			fmt.Printf("warning: %s\n", warning)
		}
	}
	if len(result.Namespaces) == 0 {
		fmt.Printf("jar entries: classes=%d resources=%d\n", result.Classes, result.Resources)
		return nil
	}
	fmt.Printf("namespaces: %s\n", strings.Join(result.Namespaces, ","))
	stats := result.Stats
	fmt.Printf("classes=%d fields=%d methods=%d parameters=%d comments=%d signatures=%d\n",
		stats.Classes, stats.Fields, stats.Methods, stats.Parameters, stats.Comments, stats.Signatures)
	return nil
}
