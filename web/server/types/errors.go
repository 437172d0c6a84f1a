package types

import "net/http"

// NewNotFoundError returns a 404 Not Found error. It's also used for paths
// outside of the served root, so that their existence isn't revealed.
func NewNotFoundError() *Error {
	return NewError(http.StatusNotFound, "")
}

// NewMethodNotAllowedError returns a 405 Method Not Allowed error, used for
// unsupported query strings. The offending query is never echoed back.
func NewMethodNotAllowedError() *Error {
	return NewError(http.StatusMethodNotAllowed, "")
}

// NewInternalError returns a 500 Internal Server Error.
func NewInternalError() *Error {
	return NewError(http.StatusInternalServerError, "")
}
