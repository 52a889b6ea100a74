package awsclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/kirillkom/docqa/internal/core/domain"
)

var (
	notFoundCodes = map[string]struct{}{
		"NoSuchKey":                 {},
		"NoSuchBucket":              {},
		"NotFound":                  {},
		"ResourceNotFoundException": {},
	}
	unauthorizedCodes = map[string]struct{}{
		"AccessDenied":                {},
		"AccessDeniedException":       {},
		"InvalidAccessKeyId":          {},
		"SignatureDoesNotMatch":       {},
		"ExpiredToken":                {},
		"ExpiredTokenException":       {},
		"InvalidToken":                {},
		"UnrecognizedClientException": {},
		"InvalidSignatureException":   {},
		"MissingAuthenticationToken":  {},
		"IncompleteSignature":         {},
		"InvalidClientTokenId":        {},
		"UnauthorizedException":       {},
		"RequestExpired":              {},
	}
	throttledCodes = map[string]struct{}{
		"ThrottlingException":                    {},
		"Throttling":                             {},
		"ThrottledException":                     {},
		"SlowDown":                               {},
		"RequestLimitExceeded":                   {},
		"TooManyRequestsException":               {},
		"ProvisionedThroughputExceededException": {},
		"RequestThrottled":                       {},
		"RequestThrottledException":              {},
	}
	invalidInputCodes = map[string]struct{}{
		"ValidationException":    {},
		"InvalidRequest":         {},
		"InvalidArgument":        {},
		"InvalidBucketName":      {},
		"ModelNotReadyException": {},
	}
	temporaryCodes = map[string]struct{}{
		"InternalError":               {},
		"InternalServerException":     {},
		"InternalServerError":         {},
		"ServiceUnavailable":          {},
		"ServiceUnavailableException": {},
		"ModelTimeoutException":       {},
		"RequestTimeout":              {},
		"RequestTimeoutException":     {},
	}
)

// ClassifyError maps an AWS SDK failure to a domain error kind once, at the adapter edge.
func ClassifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if kind := kindForCode(code); kind != nil {
			return domain.WrapError(kind, operation, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if kind := kindForStatus(respErr.HTTPStatusCode()); kind != nil {
			return domain.WrapError(kind, operation, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func kindForCode(code string) error {
	switch {
	case has(notFoundCodes, code):
		return domain.ErrNotFound
	case has(unauthorizedCodes, code):
		return domain.ErrUnauthorized
	case has(throttledCodes, code):
		return domain.ErrThrottled
	case has(invalidInputCodes, code):
		return domain.ErrInvalidInput
	case has(temporaryCodes, code):
		return domain.ErrTemporary
	}
	return nil
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return domain.ErrThrottled
	case status == http.StatusBadRequest:
		return domain.ErrInvalidInput
	case status >= http.StatusInternalServerError:
		return domain.ErrTemporary
	}
	return nil
}

func has(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}
