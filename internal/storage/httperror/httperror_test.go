package httperror

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectgate/objectgate/pkg/errors"
)

func TestStatusKind(t *testing.T) {
	tests := []struct {
		status    int
		kind      errors.Kind
		retryable bool
	}{
		{404, errors.KindObjectNotFound, false},
		{403, errors.KindObjectPermissionDenied, false},
		{500, errors.KindUnexpected, true},
		{502, errors.KindUnexpected, true},
		{503, errors.KindUnexpected, true},
		{504, errors.KindUnexpected, true},
		{400, errors.KindUnexpected, false},
		{401, errors.KindUnexpected, false},
		{409, errors.KindUnexpected, false},
		{520, errors.KindUnexpected, false},
	}

	for _, tt := range tests {
		kind, retryable := StatusKind(tt.status)
		assert.Equal(t, tt.kind, kind, "status %d", tt.status)
		assert.Equal(t, tt.retryable, retryable, "status %d", tt.status)
	}
}

func TestStatusKindTransient(t *testing.T) {
	kind, retryable := StatusKind(520, 520)
	assert.Equal(t, errors.KindUnexpected, kind)
	assert.True(t, retryable)

	// The transient list only adds retryability, never changes a mapping.
	kind, retryable = StatusKind(404, 520)
	assert.Equal(t, errors.KindObjectNotFound, kind)
	assert.False(t, retryable)
}

func makeResponse(status int, body string, header http.Header) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Proto:      "HTTP/1.1",
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClassifySchemaMessage(t *testing.T) {
	schema := func(body []byte) (string, bool) {
		return "decoded: " + string(body), true
	}

	resp := makeResponse(404, "not here", http.Header{"X-Request-Id": {"abc"}})
	err := Classify(resp, "Stat", schema)

	assert.Equal(t, errors.KindObjectNotFound, err.Kind)
	assert.False(t, err.Retryable)
	assert.Equal(t, "Stat", err.Operation)
	assert.Equal(t, "decoded: not here", err.Message)
}

func TestClassifyFallbackBody(t *testing.T) {
	schema := func([]byte) (string, bool) { return "", false }

	resp := makeResponse(500, "plain text failure", nil)
	err := Classify(resp, "Read", schema)

	assert.Equal(t, errors.KindUnexpected, err.Kind)
	assert.True(t, err.Retryable)
	assert.Equal(t, "plain text failure", err.Message)
}

func TestClassifyLossyUTF8(t *testing.T) {
	resp := makeResponse(500, "broken \xff\xfe body", nil)
	err := Classify(resp, "Read", nil)

	assert.Contains(t, err.Message, "broken")
	assert.Contains(t, err.Message, "body")
	assert.Contains(t, err.Message, "�")
}

func TestClassifyResponseContext(t *testing.T) {
	header := http.Header{
		"X-Request-Id": {"abc"},
		"Content-Type": {"application/xml"},
	}
	resp := makeResponse(403, "denied", header)
	err := Classify(resp, "Write", nil)

	rendered, ok := err.ContextValue("response")
	require.True(t, ok)
	assert.Contains(t, rendered, "HTTP/1.1")
	assert.Contains(t, rendered, "X-Request-Id: abc")
	assert.Contains(t, rendered, "Content-Type: application/xml")
	// Header names render sorted for deterministic output.
	assert.Less(t, strings.Index(rendered, "Content-Type"), strings.Index(rendered, "X-Request-Id"))
}

func TestClassifyDeterministic(t *testing.T) {
	build := func() *http.Response {
		return makeResponse(503, "try later", http.Header{"Retry-After": {"1"}})
	}

	first := Classify(build(), "Read", nil)
	second := Classify(build(), "Read", nil)
	assert.Equal(t, first, second)
}

func TestClassifyTransientStatus(t *testing.T) {
	resp := makeResponse(520, "origin unhappy", nil)
	err := Classify(resp, "Read", nil, 520)

	assert.Equal(t, errors.KindUnexpected, err.Kind)
	assert.True(t, err.Retryable)
}
