package bedrock

import (
	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

// classifyEmbedError retries throttling and transient service failures only.
func classifyEmbedError(err error) resilience.ErrorClassification {
	switch {
	case domain.IsKind(err, domain.ErrThrottled), domain.IsKind(err, domain.ErrTemporary):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}
