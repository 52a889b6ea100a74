package cli

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func newUploadCommand(a *app) *cobra.Command {
	var name, location, description string

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Store a file and append it to the catalog",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&location, "location", "", "location (required)")
	cmd.Flags().StringVar(&description, "description", "", "optional description")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string, services *Services) error {
		path := args[0]
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer file.Close()

		outcome, err := services.Uploader.Submit(cmd.Context(), domain.UploadForm{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Body:        file,
			Name:        name,
			Location:    location,
			Description: description,
		})
		if err != nil {
			var uploadErr *domain.UploadError
			if errors.As(err, &uploadErr) {
				return fmt.Errorf("upload rejected at step %q: %w", uploadErr.Step, uploadErr.Err)
			}
			return fmt.Errorf("upload: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "state: %s\n", outcome.State)
		if outcome.Record != nil {
			fmt.Fprintf(out, "record: %s\n", outcome.Record.ID)
			fmt.Fprintf(out, "link: %s\n", outcome.Record.FileLink)
		}
		return nil
	})
	return cmd
}
