package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	aerrors "go.hackfix.me/dirserve/app/errors"
	"go.hackfix.me/dirserve/content"
	"go.hackfix.me/dirserve/tree"
	"go.hackfix.me/dirserve/web/server/types"
)

const (
	// DefaultBufferLimit is the largest text file that is read into memory
	// before responding. Larger files are streamed.
	DefaultBufferLimit int64 = 4 << 20
	chunkSize                = 32 << 10
)

// Streamer writes file contents to HTTP responses.
type Streamer struct {
	root        *tree.Root
	bufferLimit int64
	logger      *slog.Logger
}

// NewStreamer returns a new Streamer for files under root. Text files up to
// bufferLimit bytes are sent in a single write; everything else is streamed
// in bounded chunks. A bufferLimit <= 0 selects DefaultBufferLimit.
func NewStreamer(root *tree.Root, bufferLimit int64, logger *slog.Logger) *Streamer {
	if bufferLimit <= 0 {
		bufferLimit = DefaultBufferLimit
	}
	return &Streamer{root: root, bufferLimit: bufferLimit, logger: logger}
}

// Respond writes the contents of the file entry to w, using the headers
// described by desc. Failing to open the file results in a 500 response.
func (s *Streamer) Respond(w http.ResponseWriter, r *http.Request, entry *tree.Entry, desc content.Descriptor) error {
	f, err := s.root.Open(entry)
	if err != nil {
		writeError(w, types.NewInternalError())
		return aerrors.NewWithCause("failed opening file", err, "path", entry.DisplayPath)
	}
	defer f.Close()

	// The size may have changed since the file was resolved.
	fi, err := f.Stat()
	if err != nil {
		writeError(w, types.NewInternalError())
		return aerrors.NewWithCause("failed reading file metadata", err, "path", entry.DisplayPath)
	}
	size := fi.Size()

	h := w.Header()
	h.Set("Content-Type", desc.MIMEType)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Disposition", disposition(desc, entry.Name()))

	if desc.IsText && size <= s.bufferLimit {
		data := make([]byte, size)
		if _, err = io.ReadFull(f, data); err != nil {
			h.Del("Content-Disposition")
			writeError(w, types.NewInternalError())
			return aerrors.NewWithCause("failed reading file", err, "path", entry.DisplayPath)
		}
		h.Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		if _, err = w.Write(data); err != nil {
			return fmt.Errorf("failed writing response: %w", err)
		}
		return nil
	}

	h.Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return nil
	}

	src := &ctxReader{ctx: r.Context(), r: io.LimitReader(f, size)}
	// Hide any io.ReaderFrom implementation, so that writes happen in chunks.
	dst := struct{ io.Writer }{w}
	n, err := io.CopyBuffer(dst, src, make([]byte, chunkSize))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("client went away while streaming",
				"path", entry.DisplayPath, "bytes_sent", n)
			return nil
		}
		// Headers were already sent, so the client sees a truncated body.
		return aerrors.NewWithCause("failed streaming file", err,
			"path", entry.DisplayPath, "bytes_sent", n)
	}

	return nil
}

func disposition(desc content.Descriptor, name string) string {
	if desc.Disposition == content.Inline {
		return string(content.Inline)
	}
	v := mime.FormatMediaType(string(content.Attachment), map[string]string{"filename": name})
	if v == "" {
		return string(content.Attachment)
	}
	return v
}

// ctxReader stops reading once its context is done, so that streaming stops
// promptly when the client disconnects.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err //nolint:wrapcheck // Checked by the caller.
	}
	return c.r.Read(p) //nolint:wrapcheck // Checked by the caller.
}
