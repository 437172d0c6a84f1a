package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"go.hackfix.me/dirserve/tree"
	"go.hackfix.me/dirserve/web/listing"
	"go.hackfix.me/dirserve/xsize"
)

// renderEntries writes a borderless table of entries to w, one row per entry.
// The synthetic parent entry is omitted, and directory names end with a slash.
func renderEntries(w io.Writer, entries []tree.ListingEntry) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.Off,
						ShowFooterLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.Off,
						ShowFooter:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.Off,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				// Paths are never truncated or wrapped, so that they can be
				// copied from the output.
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment: tw.CellAlignment{
					Global:    tw.AlignLeft,
					PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft},
				},
			},
		}),
	)

	table.Header([]string{"Name", "Type", "Size", "Modified"})
	for _, e := range entries {
		if e.Name == ".." {
			continue
		}
		name, size := e.Name, ""
		if e.Kind == tree.KindDirectory {
			name += "/"
		} else {
			size = xsize.Format(e.Size)
		}
		row := []string{name, e.Kind.String(), size, e.ModTime.UTC().Format(listing.TimeLayout)}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed rendering table: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed rendering table: %w", err)
	}

	return nil
}
