package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// parseHTTPError understands both the data API's {message, code} body and
// the auth API's {error, error_description, msg} body.
func parseHTTPError(status int, body []byte) *HTTPError {
	var apiErr struct {
		Message          string `json:"message"`
		Code             any    `json:"code"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return &HTTPError{StatusCode: status, Message: string(body)}
	}

	e := &HTTPError{StatusCode: status}
	switch code := apiErr.Code.(type) {
	case string:
		e.Code = code
	case float64:
		e.Code = fmt.Sprint(code)
	}
	if e.Code == "" {
		e.Code = apiErr.ErrorCode
	}
	if e.Code == "" {
		e.Code = apiErr.Error
	}
	for _, m := range []string{apiErr.Message, apiErr.ErrorDescription, apiErr.Msg, apiErr.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = string(body)
	}
	return e
}
