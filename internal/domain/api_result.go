package domain

import "fmt"

// ClientErrorMessage is shown when no backend API can answer a query.
const ClientErrorMessage = "No Wind River/Kubernetes API capable of answering your question was found!\nPlease try again with another prompt."

type CallStatus string

const (
	CallOK           CallStatus = "ok"
	CallNotFound     CallStatus = "not_found"
	CallFormatError  CallStatus = "format_error"
	CallAuthFailed   CallStatus = "auth_failed"
	CallNetworkError CallStatus = "network_error"
	CallBackendError CallStatus = "backend_error"
)

// APICallResult is the single terminal outcome of one dispatch.
type APICallResult struct {
	Status     CallStatus
	Pool       BackendPool
	Instance   string
	Endpoint   string
	Source     string
	StatusCode int
	// Payload is the shaped response body on success, the raw body on a backend error.
	Payload string
	Detail  string
}

func (r APICallResult) OK() bool {
	return r.Status == CallOK
}

// Text renders the result for the memory store or the user.
func (r APICallResult) Text() string {
	switch r.Status {
	case CallOK:
		return fmt.Sprintf("%s response from %s = %s", r.Source, r.Instance, r.Payload)
	case CallNotFound, CallFormatError:
		return ClientErrorMessage
	case CallAuthFailed:
		if r.StatusCode == 0 {
			return fmt.Sprintf("An error occurred while trying to retrieve the authentication for the Wind River APIs. Error: %s", r.Detail)
		}
		return fmt.Sprintf("Error trying to retrieve authentication token:\n %d, %s", r.StatusCode, r.Payload)
	case CallNetworkError:
		return fmt.Sprintf("An error occurred while trying to retrieve the information, please rewrite the question and try again.\n Error: %s", r.Detail)
	case CallBackendError:
		return fmt.Sprintf("Error trying to make API request:\n %d, %s", r.StatusCode, r.Payload)
	default:
		return ClientErrorMessage
	}
}
