// Package httperror is the shared skeleton for per-backend HTTP response
// classification. It owns the status→(kind, retryable) table; backends
// contribute only a Schema that knows how to decode their structured error
// body. Adding a backend means adding a Schema, not touching the table.
package httperror

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/objectgate/objectgate/pkg/errors"
)

// Schema decodes a backend's structured error body into a human-readable
// message. It returns ok=false when the body does not parse as the
// backend's error format, in which case classification falls back to the
// raw body as lossy UTF-8 text.
type Schema func(body []byte) (message string, ok bool)

// StatusKind maps an HTTP status code to the unified error taxonomy.
// Statuses listed in transient are additionally treated as retryable
// Unexpected faults (e.g. the 520 origin errors one backend family emits).
func StatusKind(status int, transient ...int) (errors.Kind, bool) {
	switch status {
	case http.StatusNotFound:
		return errors.KindObjectNotFound, false
	case http.StatusForbidden:
		return errors.KindObjectPermissionDenied, false
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return errors.KindUnexpected, true
	}
	for _, code := range transient {
		if status == code {
			return errors.KindUnexpected, true
		}
	}
	return errors.KindUnexpected, false
}

// Classify drains resp's body and turns the response into a taxonomy error.
// The resulting error always carries the rendered status line and headers
// under the "response" context key. Classification itself never fails: a
// body that cannot be read or parsed still produces a usable error.
func Classify(resp *http.Response, op string, schema Schema, transient ...int) *errors.Error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	kind, retryable := StatusKind(resp.StatusCode, transient...)

	var message string
	if schema != nil {
		if m, ok := schema(body); ok {
			message = m
		}
	}
	if message == "" {
		message = strings.ToValidUTF8(string(body), "�")
	}

	err := errors.New(kind, message).
		WithOperation(op).
		WithContext("response", formatResponse(resp))
	if retryable {
		err = err.WithRetryable(true)
	}
	return err
}

// formatResponse renders the status line and headers as debug text. Header
// names are sorted so the rendering is deterministic.
func formatResponse(resp *http.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", resp.Proto, resp.Status)

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "; %s: %s", name, strings.Join(resp.Header[name], ", "))
	}
	return b.String()
}
