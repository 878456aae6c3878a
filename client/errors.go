package client

// ErrorKind classifies API failures.
type ErrorKind int

const (
	// KindUnauthorized covers 401s and renewal failures.
	KindUnauthorized ErrorKind = iota
	// KindNetwork covers requests that received no response.
	KindNetwork
	// KindServer covers 5xx responses.
	KindServer
	// KindValidation covers other 4xx responses carrying a server message.
	KindValidation
)

const (
	networkErrorMessage = "Network error. Please check your connection."
	serverErrorMessage  = "Server error. Please try again later."
	genericErrorMessage = "Something went wrong. Please try again."
)

// APIError is the single error shape surfaced by the client. Message is
// human-readable; Status is zero when no response was received.
type APIError struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return e.Message
}

func networkError() *APIError {
	return &APIError{Kind: KindNetwork, Message: networkErrorMessage}
}

func statusError(status int, serverMessage string) *APIError {
	switch {
	case status == 401:
		message := serverMessage
		if message == "" {
			message = "Unauthorized"
		}
		return &APIError{Kind: KindUnauthorized, Message: message, Status: status}
	case status >= 500:
		return &APIError{Kind: KindServer, Message: serverErrorMessage, Status: status}
	default:
		message := serverMessage
		if message == "" {
			message = genericErrorMessage
		}
		return &APIError{Kind: KindValidation, Message: message, Status: status}
	}
}
