package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/pkg/core"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	JSONOutput bool
}

// buildSummary is the -o json rendering of a build result.
type buildSummary struct {
	*core.BuildResult
	DurationMS int64 `json:"duration_ms"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the graph and write bulk-import tables",
		Long: `Read every source declared in the schema, merge the resolved entities
and relations into one graph and write one table per label to the output
directory, together with a manifest.json.

A failing source is reported and left out of the graph; the other sources
are still exported. The command exits non-zero when any source or the
export failed.`,
		Example: `  # Build with the settings from leapgraph.yaml
  leapgraph build

  # Write Neptune tables with four sources processed at once
  leapgraph build --dialect neptune --parallelism 4

  # Build and publish the tables to S3
  leapgraph build --upload --bucket my-graphs --prefix hpo/2026-10

  # Emit JSON lines for CI/CD integration
  leapgraph build --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")
	cmd.Flags().String("dialect", "", "Export dialect (neo4j|neptune)")
	cmd.Flags().Bool("ancestor-labels", false, "Write the is_a chain into the node label column")
	cmd.Flags().Bool("upload", false, "Upload the output directory to S3 after a successful build")
	cmd.Flags().String("bucket", "", "S3 bucket for --upload")
	cmd.Flags().String("prefix", "", "S3 key prefix for --upload")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"neo4j", "neptune"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg

	if err := cfg.ValidatePaths(); err != nil {
		return err
	}
	reg, err := cc.LoadSchema()
	if err != nil {
		return err
	}

	eng, err := cc.NewEngine(reg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if opts.JSONOutput {
		names := make([]string, 0, len(reg.Sources()))
		for _, src := range reg.Sources() {
			names = append(names, src.Name)
		}
		emitBuildEvent(out, output.BuildEvent{Event: "build_start", Sources: names})
	}

	result, buildErr := eng.Build(ctx)
	if result == nil {
		return buildErr
	}

	switch {
	case opts.JSONOutput:
		emitBuildEvents(out, result)
	case cc.Renderer.EffectiveMode() == output.ModeJSON:
		if err := cc.Renderer.JSON(buildSummary{result, result.Duration.Milliseconds()}); err != nil {
			return err
		}
	default:
		renderBuildSummary(cc.Renderer, result)
	}

	if buildErr != nil {
		return buildErr
	}

	if cfg.Upload.Enabled {
		if err := uploadOutput(ctx, cc, cfg.OutputDir, opts.JSONOutput); err != nil {
			return err
		}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// emitBuildEvents writes one event per source and a closing build_complete.
func emitBuildEvents(w io.Writer, result *core.BuildResult) {
	for _, r := range result.Sources {
		emitBuildEvent(w, output.BuildEvent{
			Event:   "source_complete",
			RunID:   result.RunID,
			Source:  r.Name,
			Status:  string(r.Status),
			Rows:    r.Rows,
			Skipped: r.SkippedRows,
			Nodes:   r.Nodes,
			Edges:   r.Edges + r.DerivedEdges,
			Error:   r.Error,
			TotalMS: r.DurationMS,
		})
	}

	emitBuildEvent(w, output.BuildEvent{
		Event:   "build_complete",
		RunID:   result.RunID,
		Status:  string(result.Status),
		Nodes:   sumCounts(result.NodeCounts),
		Edges:   sumCounts(result.EdgeCounts),
		Error:   result.Error,
		Files:   result.Files,
		TotalMS: result.Duration.Milliseconds(),
	})
}

// emitBuildEvent outputs a build event as a JSON line.
func emitBuildEvent(w io.Writer, event output.BuildEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	_, _ = fmt.Fprintln(w, string(data))
}

func renderBuildSummary(r *output.Renderer, result *core.BuildResult) {
	r.Header(1, "Build "+result.RunID)

	r.Header(2, "Sources")
	for _, s := range result.Sources {
		detail := fmt.Sprintf("(%d rows, %d nodes, %d edges, %dms)", s.Rows, s.Nodes, s.Edges+s.DerivedEdges, s.DurationMS)
		if s.Error != "" {
			detail = s.Error
		}
		r.StatusLine(s.Name, string(s.Status), detail)
	}
	for _, s := range result.Sources {
		if s.SkippedRows > 0 {
			r.Warning(fmt.Sprintf("%s: %d rows skipped", s.Name, s.SkippedRows))
		}
		for _, binding := range slices.Sorted(maps.Keys(s.MissingBindings)) {
			r.Warning(fmt.Sprintf("%s: %d rows without %s", s.Name, s.MissingBindings[binding], binding))
		}
		if s.InvalidValues > 0 {
			r.Warning(fmt.Sprintf("%s: %d invalid values dropped", s.Name, s.InvalidValues))
		}
	}

	if len(result.NodeCounts) > 0 {
		r.Header(2, "Nodes")
		r.Table([]string{"Label", "Count"}, countRows(result.NodeCounts))
	}
	if len(result.EdgeCounts) > 0 {
		r.Header(2, "Relationships")
		r.Table([]string{"Label", "Count"}, countRows(result.EdgeCounts))
	}

	if len(result.Files) > 0 {
		r.Header(2, "Files")
		for _, f := range result.Files {
			r.Println("- " + f)
		}
	}

	elapsed := result.Duration.Round(time.Millisecond)
	switch result.Status {
	case core.BuildStatusCompleted:
		r.Success(fmt.Sprintf("Build completed in %s", elapsed))
	case core.BuildStatusCancelled:
		r.Warning(fmt.Sprintf("Build cancelled after %s", elapsed))
	default:
		r.Error(fmt.Sprintf("Build failed after %s", elapsed))
	}
}

func countRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, label := range slices.Sorted(maps.Keys(counts)) {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return rows
}

func sumCounts(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func uploadOutput(ctx context.Context, cc *CommandContext, dir string, jsonLines bool) error {
	uploader, err := cc.NewUploader(ctx)
	if err != nil {
		return err
	}
	uris, err := uploader.Upload(ctx, dir)
	if err != nil {
		return err
	}

	if jsonLines {
		emitBuildEvent(cc.Renderer.Writer(), output.BuildEvent{Event: "upload_complete", Status: "completed", Files: uris})
		return nil
	}
	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(map[string]any{"uploaded": uris})
	}
	cc.Renderer.Success(fmt.Sprintf("Uploaded %d objects to s3://%s/%s", len(uris), cc.Cfg.Upload.Bucket, strings.Trim(cc.Cfg.Upload.Prefix, "/")))
	return nil
}
