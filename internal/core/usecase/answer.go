package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

// AnswerComposer asks the completion model with a stuff prompt and retries throttled calls.
type AnswerComposer struct {
	model    ports.CompletionModel
	executor *resilience.Executor
}

func NewAnswerComposer(model ports.CompletionModel, executor *resilience.Executor) *AnswerComposer {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.BackoffConfig(10, 0))
	}
	return &AnswerComposer{
		model:    model,
		executor: executor,
	}
}

func (c *AnswerComposer) Compose(ctx context.Context, query string, records []domain.RetrievedRecord) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "compose answer", fmt.Errorf("query is empty"))
	}
	prompt := buildStuffPrompt(query, records)

	var (
		answer   string
		attempts int
	)
	err := c.executor.Execute(ctx, "completion.complete", func(callCtx context.Context) error {
		attempts++
		out, err := c.model.Complete(callCtx, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	}, classifyCompletionError)
	if err != nil {
		if domain.IsKind(err, domain.ErrThrottled) && attempts >= c.executor.MaxAttempts() {
			return "", fmt.Errorf("compose answer: completion still throttled after %d attempts: %w", attempts, err)
		}
		return "", fmt.Errorf("compose answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func classifyCompletionError(err error) resilience.ErrorClassification {
	if domain.IsKind(err, domain.ErrThrottled) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
}
