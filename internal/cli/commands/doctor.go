package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapgraph/internal/cli/config"
	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/internal/reader"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/spf13/cobra"
)

// DefaultSampleRows is the number of records read per source by doctor.
const DefaultSampleRows = 100

// Health check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	SampleRows int
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a project health check",
		Long: `Check that a build can run: configuration, schema, input files,
build history, output directory and upload settings.

Every source file is opened and its first records are read, so format
problems show up before a full build.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  leapgraph doctor

  # Read more records per source, output as JSON
  leapgraph doctor --sample 1000 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.SampleRows, "sample", DefaultSampleRows, "Records read per source")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ConfigFile   string        `json:"config_file,omitempty"`
	HealthChecks []HealthCheck `json:"health_checks"`
	Score        int           `json:"score"`
	IssueCount   int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

func (c *HealthCheck) issue(status, format string, args ...any) {
	if status == checkError || c.Status == checkPass {
		c.Status = status
	}
	c.Details = append(c.Details, fmt.Sprintf(format, args...))
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	out := diagnose(cc, opts.SampleRows)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	for _, c := range out.HealthChecks {
		if c.Status == checkError {
			return fmt.Errorf("%d health check(s) failed", countStatus(out.HealthChecks, checkError))
		}
	}
	return nil
}

func diagnose(cc *CommandContext, sampleRows int) *DoctorOutput {
	cfg := cc.Cfg
	out := &DoctorOutput{ConfigFile: config.GetConfigFileUsed()}

	configCheck := HealthCheck{ID: "CF01", Name: "Configuration file", Group: "configuration", Status: checkPass}
	if out.ConfigFile == "" {
		configCheck.issue(checkWarn, "no %s found, using defaults", config.ConfigFileNames[0])
	}

	reg, schemaCheck := checkSchema(cc)
	inputChecks := checkInputs(cfg, reg, sampleRows)

	out.HealthChecks = append(out.HealthChecks, configCheck, schemaCheck)
	out.HealthChecks = append(out.HealthChecks, inputChecks...)
	out.HealthChecks = append(out.HealthChecks,
		checkState(cc),
		checkOutputDir(cfg.OutputDir),
		checkUpload(cfg.Upload),
	)

	out.Score = calculateHealthScore(out.HealthChecks)
	for _, c := range out.HealthChecks {
		out.IssueCount += len(c.Details)
	}
	return out
}

func checkSchema(cc *CommandContext) (*schema.Registry, HealthCheck) {
	check := HealthCheck{ID: "SC01", Name: "Schema is valid", Group: "schema", Status: checkPass}
	reg, err := cc.LoadSchema()
	if err != nil {
		errs := []error{err}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = joined.Unwrap()
		}
		for _, e := range errs {
			check.issue(checkError, "%s", e.Error())
		}
		return nil, check
	}
	return reg, check
}

func checkInputs(cfg *config.Config, reg *schema.Registry, sampleRows int) []HealthCheck {
	dirCheck := HealthCheck{ID: "IN01", Name: "Input directory exists", Group: "inputs", Status: checkPass}
	filesCheck := HealthCheck{ID: "IN02", Name: "Source files present", Group: "inputs", Status: checkPass}
	readCheck := HealthCheck{ID: "IN03", Name: "Source files readable", Group: "inputs", Status: checkPass}

	if info, err := os.Stat(cfg.InputDir); err != nil || !info.IsDir() {
		dirCheck.issue(checkError, "%s is not a directory", cfg.InputDir)
		return []HealthCheck{dirCheck}
	}
	if reg == nil {
		return []HealthCheck{dirCheck}
	}

	fsys := os.DirFS(cfg.InputDir)
	for _, src := range reg.Sources() {
		if _, err := os.Stat(filepath.Join(cfg.InputDir, src.Path)); err != nil {
			filesCheck.issue(checkError, "%s: %s not found", src.Name, src.Path)
			continue
		}
		n, failed := 0, false
		for _, err := range reader.Open(src, fsys).Records() {
			if err != nil {
				readCheck.issue(checkError, "%s: %v", src.Name, err)
				failed = true
				break
			}
			n++
			if n >= sampleRows {
				break
			}
		}
		if n == 0 && !failed {
			readCheck.issue(checkWarn, "%s: no records", src.Name)
		}
	}
	return []HealthCheck{dirCheck, filesCheck, readCheck}
}

func checkState(cc *CommandContext) HealthCheck {
	check := HealthCheck{ID: "ST01", Name: "Build history", Group: "state", Status: checkPass}
	if cc.Cfg.StatePath == "" {
		check.issue(checkWarn, "state_path is empty, builds are not recorded")
		return check
	}
	store, cleanup, err := cc.OpenStore()
	if err != nil {
		check.issue(checkError, "%v", err)
		return check
	}
	defer cleanup()
	if _, err := store.GetMigrationVersion(); err != nil {
		check.issue(checkError, "%v", err)
	}
	return check
}

func checkOutputDir(dir string) HealthCheck {
	check := HealthCheck{ID: "OU01", Name: "Output directory writable", Group: "output", Status: checkPass}

	// probe the nearest existing ancestor
	probe := dir
	for {
		info, err := os.Stat(probe)
		if err == nil {
			if !info.IsDir() {
				check.issue(checkError, "%s is not a directory", probe)
				return check
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			check.issue(checkError, "%v", err)
			return check
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	f, err := os.CreateTemp(probe, ".leapgraph-probe-*")
	if err != nil {
		check.issue(checkError, "cannot write to %s: %v", probe, err)
		return check
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return check
}

func checkUpload(u config.UploadConfig) HealthCheck {
	check := HealthCheck{ID: "UP01", Name: "Upload settings", Group: "output", Status: checkPass}
	if !u.Enabled {
		return check
	}
	if u.Bucket == "" {
		check.issue(checkError, "upload is enabled but upload.bucket is empty")
	}
	if (u.AccessKey == "") != (u.SecretKey == "") {
		check.issue(checkWarn, "upload.access_key and upload.secret_key should be set together")
	}
	return check
}

// calculateHealthScore computes a health score from 0-100.
// Warnings cost 10 points and errors 25, per check.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case checkError:
			score -= 25
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

func countStatus(checks []HealthCheck, status string) int {
	n := 0
	for _, c := range checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("LeapGraph Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	if out.ConfigFile != "" {
		r.Println(styles.Muted.Render("   Config: " + out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.StatusFailed.String()
		}
		r.Println(fmt.Sprintf("   %s %s: %s", icon, check.ID, check.Name))

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Count
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# LeapGraph Project Health Report")
	r.Println("")
	if out.ConfigFile != "" {
		r.Println(output.FormatKeyValue("Config", out.ConfigFile))
		r.Println("")
	}

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case checkWarn:
			status = "WARN"
		case checkError:
			status = "ERROR"
		}
		r.Printf("- **[%s]** %s: %s\n", status, check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
}
