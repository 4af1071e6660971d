package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultRunsLimit is the number of builds listed when --limit is not set.
const DefaultRunsLimit = 10

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded builds",
		Long: `List builds recorded in the state database, most recent first.

Use "runs show <id>" for the per-source report and label counts of one
build; "latest" selects the most recent build.`,
		Example: `  # List the last 10 builds
  leapgraph runs

  # Show the most recent build as JSON
  leapgraph runs show latest -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunsList(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", DefaultRunsLimit, "Maximum number of builds to list")

	cmd.AddCommand(newRunsShowCommand())
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	}
}

func runRunsList(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	builds, err := store.ListBuilds(limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if builds == nil {
			builds = []*core.Build{}
		}
		return r.JSON(builds)
	}

	if len(builds) == 0 {
		r.Muted("No builds recorded")
		return nil
	}

	r.Header(1, "Builds")
	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, []string{
			b.ID,
			string(b.Status),
			b.StartedAt.Local().Format(time.DateTime),
			buildDuration(b),
			b.OutputDir,
		})
	}
	r.Table([]string{"ID", "Status", "Started", "Duration", "Output"}, rows)
	return nil
}

// buildDetail is the JSON view of one build.
type buildDetail struct {
	*core.Build
	Sources    []core.SourceReport `json:"sources"`
	NodeCounts map[string]int      `json:"node_counts"`
	EdgeCounts map[string]int      `json:"edge_counts"`
}

func runRunsShow(cmd *cobra.Command, id string) error {
	cc := NewCommandContext(cmd)
	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	var b *core.Build
	if id == "latest" {
		b, err = store.GetLatestBuild()
		if err == nil && b == nil {
			err = fmt.Errorf("no builds recorded")
		}
	} else {
		b, err = store.GetBuild(id)
	}
	if err != nil {
		return err
	}

	reports, err := store.GetSourceReports(b.ID)
	if err != nil {
		return err
	}
	nodes, edges, err := store.GetLabelCounts(b.ID)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(buildDetail{Build: b, Sources: reports, NodeCounts: nodes, EdgeCounts: edges})
	}

	r.Header(1, "Build "+b.ID)
	r.Println(output.FormatKeyValue("Status", string(b.Status)))
	r.Println(output.FormatKeyValue("Schema", b.SchemaPath))
	r.Println(output.FormatKeyValue("Output", b.OutputDir))
	r.Println(output.FormatKeyValue("Started", b.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Duration", buildDuration(b)))
	if b.Error != "" {
		r.Error(b.Error)
	}

	if len(reports) > 0 {
		r.Header(2, "Sources")
		rows := make([][]string, 0, len(reports))
		for _, s := range reports {
			rows = append(rows, []string{
				s.Name,
				string(s.Status),
				strconv.Itoa(s.Rows),
				strconv.Itoa(s.SkippedRows),
				strconv.Itoa(s.Nodes),
				strconv.Itoa(s.Edges + s.DerivedEdges),
				fmt.Sprintf("%dms", s.DurationMS),
			})
		}
		r.Table([]string{"Source", "Status", "Rows", "Skipped", "Nodes", "Edges", "Duration"}, rows)
	}
	if len(nodes) > 0 {
		r.Header(2, "Nodes")
		r.Table([]string{"Label", "Count"}, countRows(nodes))
	}
	if len(edges) > 0 {
		r.Header(2, "Relationships")
		r.Table([]string{"Label", "Count"}, countRows(edges))
	}
	return nil
}

func buildDuration(b *core.Build) string {
	if b.CompletedAt == nil {
		return "-"
	}
	return b.CompletedAt.Sub(b.StartedAt).Round(time.Millisecond).String()
}
