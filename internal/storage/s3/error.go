package s3

import (
	stderrors "errors"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/objectgate/objectgate/internal/storage/httperror"
	"github.com/objectgate/objectgate/pkg/errors"
)

// translateError maps AWS SDK failures onto the unified taxonomy. Typed
// modeled errors win; otherwise the wrapped HTTP status goes through the
// same status table the plain-HTTP backends use.
func translateError(err error, op, key string) *errors.Error {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if stderrors.As(err, &noSuchKey) || stderrors.As(err, &notFound) {
		return errors.New(errors.KindObjectNotFound, "object not found").
			WithOperation(op).
			WithContext("key", key).
			WithCause(err)
	}

	var noSuchBucket *s3types.NoSuchBucket
	if stderrors.As(err, &noSuchBucket) {
		return errors.New(errors.KindObjectNotFound, "bucket not found").
			WithOperation(op).
			WithCause(err)
	}

	var respErr *smithyhttp.ResponseError
	if stderrors.As(err, &respErr) {
		kind, retryable := httperror.StatusKind(respErr.HTTPStatusCode())
		e := errors.New(kind, err.Error()).
			WithOperation(op).
			WithContext("key", key).
			WithCause(err)
		if retryable {
			e = e.WithRetryable(true)
		}
		return e
	}

	return errors.New(errors.KindUnexpected, err.Error()).
		WithOperation(op).
		WithContext("key", key).
		WithCause(err)
}
