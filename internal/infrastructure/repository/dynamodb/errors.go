package dynamodb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/awsclient"
)

func classify(operation string, err error) error {
	var conditionErr *types.ConditionalCheckFailedException
	if errors.As(err, &conditionErr) {
		return domain.WrapError(domain.ErrInvalidInput, operation, errors.New("catalog record id already exists"))
	}
	var notFoundErr *types.ResourceNotFoundException
	if errors.As(err, &notFoundErr) {
		return domain.WrapError(domain.ErrNotFound, operation, err)
	}
	return awsclient.ClassifyError(operation, err)
}
