package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func newAskCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer questions about the PDFs in the documents bucket",
		Long: `Loads every PDF in the documents bucket, builds a fresh index and answers questions with source links.
With a question argument the command answers it and exits. Without one it reads one question per line from stdin.`,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print answers as JSON")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string, services *Services) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		info, err := services.QA.Open(ctx)
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		defer func() { _ = services.QA.Close(info.ID) }()

		if info.Status != domain.SessionReady {
			fmt.Fprintf(out, "No documents to answer from: %s\n", info.Notice)
			return nil
		}

		if len(args) > 0 {
			question := strings.Join(args, " ")
			answer, err := services.QA.Ask(ctx, info.ID, question)
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			return printAnswer(out, answer, asJSON)
		}

		fmt.Fprintf(out, "Indexed %d pages from %d documents. Ask a question (Ctrl-D to quit).\n", info.Records, info.Sources)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			answer, err := services.QA.Ask(ctx, info.ID, question)
			if err != nil {
				// The session stays usable after a failed question.
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if err := printAnswer(out, answer, asJSON); err != nil {
				return err
			}
		}
		return scanner.Err()
	})
	return cmd
}

func printAnswer(out io.Writer, answer *domain.Answer, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, strings.TrimSpace(answer.Text))
	if len(answer.Citations) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sources:")
	for i, citation := range answer.Citations {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, citation.SourceID)
		fmt.Fprintf(out, "      %s\n", citation.Link)
	}
	return nil
}
