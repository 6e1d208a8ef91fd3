package gcs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/objectgate/objectgate/internal/storage/httperror"
	"github.com/objectgate/objectgate/pkg/errors"
)

// gcsErrorResponse mirrors the JSON error document the GCS API returns:
// a nested "error" object with a numeric code, a message, and a list of
// sub-error details.
type gcsErrorResponse struct {
	Error gcsError `json:"error"`
}

type gcsError struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Errors  []gcsErrorDetail `json:"errors"`
}

type gcsErrorDetail struct {
	Domain       string `json:"domain"`
	Location     string `json:"location"`
	LocationType string `json:"locationType"`
	Message      string `json:"message"`
	Reason       string `json:"reason"`
}

// errorSchema decodes a GCS JSON error body into a log-friendly message.
func errorSchema(body []byte) (string, bool) {
	var resp gcsErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "gcs: code=%d message=%q", resp.Error.Code, resp.Error.Message)
	for _, d := range resp.Error.Errors {
		fmt.Fprintf(&b, " [domain=%s reason=%s message=%q location=%s locationType=%s]",
			d.Domain, d.Reason, d.Message, d.Location, d.LocationType)
	}
	return b.String(), true
}

// parseError classifies a non-success GCS response. It drains the body.
func parseError(resp *http.Response, op string) *errors.Error {
	return httperror.Classify(resp, op, errorSchema)
}
