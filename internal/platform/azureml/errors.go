package azureml

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// ErrNotFound is matched by errors.Is for every "resource does not exist" error.
var ErrNotFound = errors.New("resource not found")

// ResponseError is a non-2xx response from the management API or a scoring
// endpoint.
type ResponseError struct {
	StatusCode int
	Method     string
	URL        string
	Code       string
	Message    string

	// Err is the SDK error the response was read from, if any.
	Err error
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Is makes 404 responses match ErrNotFound.
func (e *ResponseError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// newResponseError decodes the ARM error envelope when there is one.
func newResponseError(resp *http.Response, body []byte) *ResponseError {
	re := &ResponseError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		re.Method = resp.Request.Method
		re.URL = resp.Request.URL.Path
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		re.Code = envelope.Error.Code
		re.Message = envelope.Error.Message
	}
	return re
}

// armError turns an *azcore.ResponseError into a ResponseError. Other errors
// are returned unchanged.
func armError(err error) error {
	var azErr *azcore.ResponseError
	if !errors.As(err, &azErr) {
		return err
	}

	re := &ResponseError{StatusCode: azErr.StatusCode}
	if resp := azErr.RawResponse; resp != nil {
		body, _ := runtime.Payload(resp)
		re = newResponseError(resp, body)
	}
	if re.Code == "" {
		re.Code = azErr.ErrorCode
	}
	re.Err = err
	return re
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NotFoundError is returned by clients that do not speak HTTP, such as the
// local execution mode.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ProvisioningError reports a resource whose create or update ended in a
// failed or canceled provisioning state.
type ProvisioningError struct {
	Kind  string
	Name  string
	State string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s %s provisioning ended in state %s", e.Kind, e.Name, e.State)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
