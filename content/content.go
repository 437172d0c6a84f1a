// Package content decides how a file should be presented to HTTP clients: its
// media type, whether it's text, and whether browsers should display it or
// download it.
package content

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Disposition is the value of the Content-Disposition header type.
type Disposition string

const (
	Inline     Disposition = "inline"
	Attachment Disposition = "attachment"
)

// OctetStream is the media type of unidentified binary content.
const OctetStream = "application/octet-stream"

const (
	htmlType  = "text/html; charset=utf-8"
	plainType = "text/plain; charset=utf-8"
	// sniffLen is the amount of data inspected for files with an unknown
	// extension. It matches what http.DetectContentType considers.
	sniffLen = 512
)

// Descriptor describes how a file is served.
type Descriptor struct {
	MIMEType    string
	IsText      bool
	Disposition Disposition
}

func newDescriptor(mimeType string) Descriptor {
	d := Descriptor{MIMEType: mimeType, IsText: isTextType(mimeType)}
	if d.IsText {
		d.Disposition = Inline
	} else {
		d.Disposition = Attachment
	}

	return d
}

// Classify returns the descriptor of the file at filePath on fs. The media type
// is looked up by extension first; files with unknown extensions are sniffed.
// Classification never fails: unreadable or unidentified content is described
// as application/octet-stream.
func Classify(fs vfs.FileSystem, filePath string) Descriptor {
	ext := strings.ToLower(path.Ext(filePath))
	if ext == ".html" || ext == ".htm" {
		return newDescriptor(htmlType)
	}

	if mt := ByExtension(ext); mt != "" {
		return newDescriptor(mt)
	}

	sample, err := readSample(fs, filePath)
	if err != nil {
		return newDescriptor(OctetStream)
	}

	return newDescriptor(Sniff(sample))
}

// ByExtension returns the media type registered for ext (including the
// leading dot), or an empty string if it's unknown. The built-in table takes
// precedence over the system MIME database, so results don't depend on the
// host for common types.
func ByExtension(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if mt, ok := builtinTypes[ext]; ok {
		return mt
	}

	return mime.TypeByExtension(ext)
}

// Sniff determines the media type of data. Data that looks like text is
// text/plain unless a more specific text type is detected; binary data keeps
// the type of a recognized signature, or application/octet-stream.
func Sniff(data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "text/") {
		return detected
	}
	if looksLikeText(data) {
		return plainType
	}

	return detected
}

// looksLikeText returns true if data is valid UTF-8 without control
// characters other than common whitespace and escape sequences. A truncated
// multi-byte rune at the end of the sample is tolerated.
func looksLikeText(data []byte) bool {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			if len(data)-i < utf8.UTFMax && !utf8.FullRune(data[i:]) {
				return true
			}
			return false
		}
		if r < 0x20 || r == 0x7f {
			switch r {
			case '\t', '\n', '\r', '\f', '\b', 0x1b:
			default:
				return false
			}
		}
		i += size
	}

	return true
}

func isTextType(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}

	switch {
	case strings.HasPrefix(mt, "text/"),
		strings.HasSuffix(mt, "+json"),
		strings.HasSuffix(mt, "+xml"):
		return true
	}

	switch mt {
	case "application/json", "application/xml", "application/javascript",
		"application/x-sh", "application/toml", "application/yaml",
		"application/x-yaml", "image/svg+xml":
		return true
	}

	return false
}

func readSample(fs vfs.FileSystem, filePath string) ([]byte, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Never surfaced.
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err //nolint:wrapcheck // Never surfaced.
	}

	return buf[:n], nil
}
