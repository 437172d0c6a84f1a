// Package listing renders directory listings and search results as HTML.
package listing

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"go.hackfix.me/dirserve/tree"
	"go.hackfix.me/dirserve/xsize"
)

//go:embed templates/listing.html
var defaultTemplate string

// TimeLayout is the format of modification times in listings. Times are
// always rendered in UTC.
const TimeLayout = "2006-01-02 15:04:05 UTC"

// Renderer renders listing pages. It's immutable after creation, and safe for
// concurrent use.
type Renderer struct {
	tmpl   *template.Template
	footer string
}

// Option configures a Renderer.
type Option func(*rendererOptions)

type rendererOptions struct {
	template string
	footer   string
}

// WithTemplate replaces the built-in page template. The template is executed
// with a Page value.
func WithTemplate(text string) Option {
	return func(o *rendererOptions) {
		o.template = text
	}
}

// WithFooter sets the text shown at the bottom of every page.
func WithFooter(footer string) Option {
	return func(o *rendererOptions) {
		o.footer = footer
	}
}

// Page is the data passed to the page template.
type Page struct {
	Title  string
	Rows   []Row
	Footer string
}

// Row is a listing entry prepared for display.
type Row struct {
	Name       string
	Link       string
	Kind       string
	Size       string
	ModTime    string
	ModTimeISO string
}

// New returns a new Renderer.
func New(opts ...Option) (*Renderer, error) {
	o := &rendererOptions{template: defaultTemplate}
	for _, opt := range opts {
		opt(o)
	}

	tmpl, err := template.New("listing").Parse(o.template)
	if err != nil {
		return nil, fmt.Errorf("failed parsing listing template: %w", err)
	}

	return &Renderer{tmpl: tmpl, footer: o.footer}, nil
}

// Render returns the HTML page listing entries under the given title.
// Names and links are escaped by the template engine.
func (r *Renderer) Render(title string, entries []tree.ListingEntry) ([]byte, error) {
	page := Page{
		Title:  title,
		Rows:   make([]Row, 0, len(entries)),
		Footer: r.footer,
	}
	for _, e := range entries {
		page.Rows = append(page.Rows, newRow(e))
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed rendering listing: %w", err)
	}

	return buf.Bytes(), nil
}

func newRow(e tree.ListingEntry) Row {
	row := Row{
		Name: e.Name,
		Link: e.Link,
		Kind: e.Kind.String(),
	}
	if e.Kind == tree.KindFile {
		row.Size = xsize.Format(e.Size)
	}
	if !e.ModTime.IsZero() {
		mt := e.ModTime.UTC()
		row.ModTime = mt.Format(TimeLayout)
		row.ModTimeISO = mt.Format(time.RFC3339)
	}

	return row
}
