package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// buildStuffPrompt places every retrieved record verbatim ahead of the question.
func buildStuffPrompt(question string, records []domain.RetrievedRecord) string {
	var contextBuilder strings.Builder
	for idx, record := range records {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] source=%s page=%d\n%s\n\n",
			idx+1,
			record.Record.SourceID,
			record.Record.SequenceNo+1,
			record.Record.Text,
		))
	}

	return fmt.Sprintf(`Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context:
%s
Question: %s
Helpful Answer:`, contextBuilder.String(), question)
}
