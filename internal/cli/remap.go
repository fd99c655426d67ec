package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"layered-remap/internal/app"
	"layered-remap/internal/types"
)

type remapOptions struct {
	Project     string
	Inputs      []string
	Outputs     []string
	From        string
	To          string
	Classpath   []string
	Overlays    []string
	Parallelism int
}

func newRemapCommand(settings *settingsOptions) *cobra.Command {
	opts := remapOptions{}
	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Rewrite jars from one namespace to another",
		Long: "Rewrite jars from one namespace to another. Inputs and outputs pair up by position;\n" +
			"an output equal to its input is replaced in place.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemap(cmd.Context(), cmd, opts, settings.settings(cmd))
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project file path (defaults to layered-remap.yaml)")
	cmd.Flags().StringSliceVar(&opts.Inputs, "input", nil, "Input jar(s)")
	cmd.Flags().StringSliceVar(&opts.Outputs, "output", nil, "Output jar(s), one per input")
	cmd.Flags().StringVar(&opts.From, "from", "", "Source namespace (defaults to project remap.from)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Target namespace (defaults to project remap.to)")
	cmd.Flags().StringSliceVar(&opts.Classpath, "classpath", nil, "Classpath jars used for inheritance lookups")
	cmd.Flags().StringSliceVar(&opts.Overlays, "overlay", nil, "Extra tiny files applied to these jobs only")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "Concurrent remap jobs (0 = number of CPUs)")

	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("remap_from", cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("remap_to", cmd.Flags().Lookup("to"))
	_ = viper.BindPFlag("remap_classpath", cmd.Flags().Lookup("classpath"))
	_ = viper.BindPFlag("remap_overlays", cmd.Flags().Lookup("overlay"))
	_ = viper.BindPFlag("remap_parallelism", cmd.Flags().Lookup("parallelism"))
	return cmd
}

func runRemap(ctx context.Context, cmd *cobra.Command, opts remapOptions, settings app.Settings) error {
	jobs, err := remapJobs(cmd, opts)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.Remap(ctx, app.RemapRequest{
		ProjectPath: resolveString(cmd, opts.Project, "project", "project"),
		Settings:    settings,
		Jobs:        jobs,
		Parallelism: resolveInt(cmd, opts.Parallelism, "remap_parallelism", "parallelism"),
	})
	if err != nil {
		return err
	}
	app.EmitHints(result.Hints)
	fmt.Printf("remapped with %s\n", result.Version)
	for _, job := range result.Results {
		fmt.Printf("- %s: classes=%d resources=%d overlay=%d (%s)\n",
			job.Output, job.ClassesRemapped, job.ResourcesCopied, job.OverlayEntries, job.Duration.Round(time.Millisecond))
	}
	return nil
}

// remapJobs pairs inputs with outputs. Flags that are not set stay empty so
// the project defaults apply.
func remapJobs(cmd *cobra.Command, opts remapOptions) ([]types.RemapJob, error) {
	if len(opts.Inputs) == 0 {
		return nil, types.ConfigurationError("at least one --input is required")
	}
	if len(opts.Inputs) != len(opts.Outputs) {
		return nil, types.ConfigurationError(fmt.Sprintf("got %d inputs and %d outputs; pass one --output per --input", len(opts.Inputs), len(opts.Outputs)))
	}
	from := resolveString(cmd, opts.From, "remap_from", "from")
	to := resolveString(cmd, opts.To, "remap_to", "to")
	classpath := resolveStrings(cmd, opts.Classpath, "remap_classpath", "classpath")
	overlays := resolveStrings(cmd, opts.Overlays, "remap_overlays", "overlay")
	jobs := make([]types.RemapJob, 0, len(opts.Inputs))
	for i, input := range opts.Inputs {
		jobs = append(jobs, types.RemapJob{
			Input:     strings.TrimSpace(input),
			Output:    strings.TrimSpace(opts.Outputs[i]),
			From:      from,
			To:        to,
			Classpath: classpath,
			Overlays:  overlays,
		})
	}
	return jobs, nil
}
