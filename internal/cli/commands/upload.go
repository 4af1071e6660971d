package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [dir]",
		Short: "Upload exported tables to S3",
		Long: `Upload the tables named by an export manifest, and the manifest itself,
to S3. The directory defaults to the configured output directory.

Credentials come from the upload section of leapgraph.yaml or the standard
AWS configuration sources. Set upload.endpoint for S3-compatible stores.`,
		Example: `  # Upload the last build
  leapgraph upload --bucket my-graphs --prefix hpo/2026-10

  # Upload another export directory
  leapgraph upload exports/neptune --bucket my-graphs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			dir := cc.Cfg.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			if cc.Cfg.Upload.Bucket == "" {
				return fmt.Errorf("upload bucket is required\nHint: set upload.bucket in leapgraph.yaml or pass --bucket")
			}
			return runUpload(cmd, cc, dir)
		},
	}

	cmd.Flags().String("bucket", "", "S3 bucket")
	cmd.Flags().String("prefix", "", "S3 key prefix")
	return cmd
}

func runUpload(cmd *cobra.Command, cc *CommandContext, dir string) error {
	ctx := commandContext(cmd)
	uploader, err := cc.NewUploader(ctx)
	if err != nil {
		return err
	}
	uris, err := uploader.Upload(ctx, dir)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"uploaded": uris})
	}
	r.Header(1, "Uploaded "+output.FormatCount(len(uris), "object", "objects"))
	for _, uri := range uris {
		r.Println("- " + uri)
	}
	return nil
}
