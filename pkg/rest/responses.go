package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apierr "github.com/glycoshape/glyco/pkg/api/types/errors"
	gerr "github.com/glycoshape/glyco/pkg/errors"
)

// MessageFor is a title of error message for HTTP status code range.
type MessageFor map[StatusCodeRange]string

func (mf MessageFor) of(resp *http.Response) string {
	scr := StatusCodeRangeOf(resp)
	if message, ok := mf[scr]; ok {
		return message
	}
	return fmt.Sprintf("%s (status code = %d)", scr, resp.StatusCode)
}

// unmarshal http response which has json content.
//
// args:
//   - resp: http response to be processed.
//   - v: value which response should be.
//   - messageFor: title of error message for HTTP status code range.
//
// return:
//
//	*BoundaryError if...
//	- can not read response body (KindTransport)
//	- response body is not shaped of v (KindMalformed)
//	- status code is not 2xx (KindStatus)
func unmarshalJsonResponse[T any](resp *http.Response, v *T, messageFor MessageFor) error {
	if err := statusError(resp, messageFor); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return gerr.Malformed(err)
	}
	return nil
}

// read whole payload of a successful response.
func readPayload(resp *http.Response, messageFor MessageFor) ([]byte, error) {
	if err := statusError(resp, messageFor); err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gerr.Transport(err)
	}
	return buf, nil
}

// statusError returns nil for 2xx responses. Otherwise, it consumes the body
// and returns *BoundaryError with the server message as its detail.
func statusError(resp *http.Response, messageFor MessageFor) error {
	if StatusCodeRangeOf(resp) == Status2xx {
		return nil
	}

	message := messageFor.of(resp)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gerr.New(
			gerr.KindStatus, message,
			gerr.WithStatus(resp.StatusCode),
			gerr.WithDetail("cannot read server message: "+err.Error()),
			gerr.WithCause(err),
		)
	}

	return gerr.Status(resp.StatusCode, message, parseErrorMessage(body))
}

func parseErrorMessage(body []byte) string {
	em := apierr.ErrorMessage{}
	if err := json.Unmarshal(body, &em); err == nil {
		return em.String()
	}
	return string(body)
}
