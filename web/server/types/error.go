// Package types contains types shared by the web server packages.
package types

import "net/http"

// Error represents an HTTP error with status code and message. The message is
// sent to clients, so it must not contain internal details such as filesystem
// paths.
type Error struct {
	StatusCode int
	Message    string
}

// Error returns the error message string.
func (e Error) Error() string {
	return e.Message
}

// NewError creates a new Error with the specified status code and message. If
// message is empty, the standard status text is used.
func NewError(statusCode int, message string) *Error {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{
		StatusCode: statusCode,
		Message:    message,
	}
}
