package common

// Response is the envelope for every REST reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable failure class and a human message.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Fail wraps an error in a failure envelope.
func Fail(code, message string, details map[string]string) Response {
	return Response{Success: false, Error: &ErrorBody{Code: code, Message: message, Details: details}}
}
