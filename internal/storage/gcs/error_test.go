package gcs

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectgate/objectgate/pkg/errors"
)

const loginRequiredBody = `{
 "error": {
  "errors": [
   {
    "domain": "global",
    "reason": "required",
    "message": "Login Required",
    "locationType": "header",
    "location": "Authorization"
   }
  ],
  "code": 401,
  "message": "Login Required"
 }
}`

func errorResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Proto:      "HTTP/1.1",
		Header:     http.Header{"Content-Type": {"application/json; charset=UTF-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseErrorJSONBody(t *testing.T) {
	err := parseError(errorResponse(401, loginRequiredBody), "Stat")

	assert.Equal(t, errors.KindUnexpected, err.Kind)
	assert.False(t, err.Retryable)
	assert.Equal(t, "Stat", err.Operation)
	assert.Contains(t, err.Message, "code=401")
	assert.Contains(t, err.Message, "Login Required")
	assert.Contains(t, err.Message, "domain=global")
	assert.Contains(t, err.Message, "reason=required")
	assert.Contains(t, err.Message, "location=Authorization")

	_, ok := err.ContextValue("response")
	assert.True(t, ok)
}

func TestParseErrorStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		kind      errors.Kind
		retryable bool
	}{
		{404, errors.KindObjectNotFound, false},
		{403, errors.KindObjectPermissionDenied, false},
		{503, errors.KindUnexpected, true},
	}

	for _, tt := range tests {
		err := parseError(errorResponse(tt.status, `{"error":{"code":0,"message":"x"}}`), "Read")
		assert.Equal(t, tt.kind, err.Kind, "status %d", tt.status)
		assert.Equal(t, tt.retryable, err.Retryable, "status %d", tt.status)
	}
}

func TestParseErrorNonJSONBody(t *testing.T) {
	err := parseError(errorResponse(500, "<html>backend exploded</html>"), "Write")

	require.Equal(t, errors.KindUnexpected, err.Kind)
	assert.True(t, err.Retryable)
	assert.Equal(t, "<html>backend exploded</html>", err.Message)
}
