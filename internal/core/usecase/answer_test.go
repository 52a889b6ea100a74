package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

func recordingComposer(model *completionFake) (*AnswerComposer, *[]time.Duration) {
	waits := &[]time.Duration{}
	exec := resilience.NewExecutor(resilience.BackoffConfig(10, time.Second), resilience.WithSleeper(
		func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	))
	return NewAnswerComposer(model, exec), waits
}

func TestComposeRetriesThrottlingWithDoublingWaits(t *testing.T) {
	for n := 0; n <= 10; n++ {
		model := &completionFake{answer: " Paris. ", throttles: n}
		composer, waits := recordingComposer(model)

		answer, err := composer.Compose(context.Background(), "capital?", nil)
		if err != nil {
			t.Fatalf("n=%d: Compose() error = %v", n, err)
		}
		if answer != "Paris." {
			t.Fatalf("n=%d: unexpected answer %q", n, answer)
		}
		if model.calls != n+1 {
			t.Fatalf("n=%d: expected %d calls, got %d", n, n+1, model.calls)
		}
		var total time.Duration
		for _, w := range *waits {
			total += w
		}
		want := time.Duration(1<<n-1) * time.Second
		if total != want {
			t.Fatalf("n=%d: expected waits summing to %s, got %s (%v)", n, want, total, *waits)
		}
	}
}

func TestComposeGivesUpAfterElevenCalls(t *testing.T) {
	model := &completionFake{answer: "never", throttles: 11}
	composer, _ := recordingComposer(model)

	_, err := composer.Compose(context.Background(), "capital?", nil)
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if model.calls != 11 {
		t.Fatalf("expected 11 calls, got %d", model.calls)
	}
	if !domain.IsKind(err, domain.ErrThrottled) {
		t.Fatalf("expected throttled kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "11 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
}

func TestComposeDoesNotRetryOtherErrors(t *testing.T) {
	model := &completionFake{err: domain.WrapError(domain.ErrUnauthorized, "complete", errors.New("expired token"))}
	composer, waits := recordingComposer(model)

	_, err := composer.Compose(context.Background(), "capital?", nil)
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if model.calls != 1 || len(*waits) != 0 {
		t.Fatalf("expected a single call without waits, got calls=%d waits=%v", model.calls, *waits)
	}
}

func TestComposeStuffsEveryRecordIntoPrompt(t *testing.T) {
	model := &completionFake{answer: "ok"}
	composer, _ := recordingComposer(model)
	records := []domain.RetrievedRecord{
		{Record: domain.DocumentRecord{SourceID: "a.pdf", Text: "alpha text", SequenceNo: 0}},
		{Record: domain.DocumentRecord{SourceID: "b.pdf", Text: "beta text", SequenceNo: 3}},
	}
	if _, err := composer.Compose(context.Background(), "what is alpha?", records); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	prompt := model.prompts[0]
	for _, want := range []string{"alpha text", "beta text", "what is alpha?", "source=b.pdf page=4"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestComposeStopsWaitingOnCancel(t *testing.T) {
	model := &completionFake{answer: "late", throttles: 5}
	composer := NewAnswerComposer(model, resilience.NewExecutor(resilience.BackoffConfig(10, time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := composer.Compose(ctx, "q", nil); err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("backoff ignored context cancellation")
	}
	if model.calls != 1 {
		t.Fatalf("expected one call before cancellation, got %d", model.calls)
	}
}
