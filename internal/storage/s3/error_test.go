package s3

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectgate/objectgate/pkg/errors"
)

func TestTranslateErrorNoSuchKey(t *testing.T) {
	err := translateError(fmt.Errorf("api error: %w", &s3types.NoSuchKey{}), "Read", "a/b")

	assert.True(t, errors.IsObjectNotFound(err))
	assert.False(t, err.Retryable)
	assert.Equal(t, "Read", err.Operation)

	key, ok := err.ContextValue("key")
	require.True(t, ok)
	assert.Equal(t, "a/b", key)
}

func TestTranslateErrorNotFound(t *testing.T) {
	err := translateError(&s3types.NotFound{}, "Stat", "a/b")
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestTranslateErrorNoSuchBucket(t *testing.T) {
	err := translateError(&s3types.NoSuchBucket{}, "List", "")
	assert.True(t, errors.IsObjectNotFound(err))
}

func responseError(status int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{
			Response: &http.Response{StatusCode: status},
		},
		Err: fmt.Errorf("http response error StatusCode: %d", status),
	}
}

func TestTranslateErrorResponseStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      errors.Kind
		retryable bool
	}{
		{403, errors.KindObjectPermissionDenied, false},
		{404, errors.KindObjectNotFound, false},
		{500, errors.KindUnexpected, true},
		{503, errors.KindUnexpected, true},
		{400, errors.KindUnexpected, false},
	}

	for _, tt := range tests {
		err := translateError(responseError(tt.status), "Write", "k")
		assert.Equal(t, tt.kind, err.Kind, "status %d", tt.status)
		assert.Equal(t, tt.retryable, err.Retryable, "status %d", tt.status)
	}
}

func TestTranslateErrorUnknown(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := translateError(cause, "Read", "k")

	assert.Equal(t, errors.KindUnexpected, err.Kind)
	assert.True(t, stderrors.Is(err, cause))
}
