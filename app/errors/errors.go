package errors

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Log logs an error at the error level, extracting metadata if it's a
// StructuredError.
func Log(logger *slog.Logger, err error) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error())
		return
	}

	logger.Error(serr.Error(), attrs(serr)...)
}

// Errorf writes a user-facing rendition of err to w, including the cause and
// metadata of a StructuredError.
func Errorf(w io.Writer, err error) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %s", serr.Error())
	args := attrs(serr)
	for i := 0; i < len(args); i += 2 {
		fmt.Fprintf(w, " %s=%v", args[i], args[i+1])
	}
	fmt.Fprintln(w)
}

func attrs(serr *StructuredError) []any {
	args := make([]any, 0, len(serr.metadata)*2+2)

	cause := serr.metadata["cause"]
	if serr.cause != nil {
		cause = serr.cause
	}
	if cause != nil {
		args = append(args, "cause", cause)
	}

	keys := make([]string, 0, len(serr.metadata))
	for k := range serr.metadata {
		if k != "cause" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, k, serr.metadata[k])
	}

	return args
}
