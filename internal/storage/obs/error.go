package obs

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/objectgate/objectgate/internal/storage/httperror"
	"github.com/objectgate/objectgate/pkg/errors"
)

// statusOriginError is the non-standard transient status OBS emits when an
// origin server misbehaves. It is retryable like the 5xx family.
const statusOriginError = 520

// obsError mirrors the XML error document the OBS service returns.
type obsError struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
	HostID    string   `xml:"HostId"`
}

// errorSchema decodes an OBS XML error body into a log-friendly message.
func errorSchema(body []byte) (string, bool) {
	var e obsError
	if err := xml.Unmarshal(body, &e); err != nil {
		return "", false
	}
	return fmt.Sprintf("obs: code=%s message=%q resource=%s requestId=%s hostId=%s",
		e.Code, e.Message, e.Resource, e.RequestID, e.HostID), true
}

// parseError classifies a non-success OBS response. It drains the body.
func parseError(resp *http.Response, op string) *errors.Error {
	return httperror.Classify(resp, op, errorSchema, statusOriginError)
}
