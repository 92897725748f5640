package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// remoteError is the error envelope returned by Supabase services. The
// storage API uses "message", GoTrue uses "msg", and older endpoints use
// "error"; whichever field is populated wins.
type remoteError struct {
	Message  string `json:"message"`
	Msg      string `json:"msg"`
	ErrorStr string `json:"error"`
}

func (e remoteError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	default:
		return e.ErrorStr
	}
}

// StatusError describes a non-2xx response from an upstream service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// ResponseError reads the body of a non-2xx response and returns a
// StatusError carrying the upstream message. The body is fully consumed so
// the connection can be reused.
func ResponseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var re remoteError
	msg := ""
	if err := json.Unmarshal(body, &re); err == nil {
		msg = re.text()
	}

	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
