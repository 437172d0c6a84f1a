package tree

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// Search walks the tree under scope and returns every visible file and
// directory whose path relative to scope contains term, ignoring case. An
// empty term matches everything. Results are in walk order: each directory
// precedes its contents, and siblings are sorted by name. Hidden entries are
// skipped, and symbolic links to directories are reported but not followed.
func (r *Root) Search(ctx context.Context, scope *Entry, term string) ([]ListingEntry, error) {
	if scope.Kind != KindDirectory {
		return nil, fmt.Errorf("'%s' is not a directory", scope.DisplayPath)
	}

	s := &searcher{
		root:  r,
		scope: scope.DisplayPath,
		fold:  cases.Fold(),
	}
	s.term = s.fold.String(term)

	if err := s.walk(ctx, scope.DisplayPath); err != nil {
		return nil, err
	}

	return s.results, nil
}

type searcher struct {
	root    *Root
	scope   string
	term    string
	fold    cases.Caser
	results []ListingEntry
}

func (s *searcher) walk(ctx context.Context, dirDisplayPath string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // Context errors are returned as is.
	}

	children, err := s.root.readDir(s.root.join(relOf(dirDisplayPath)))
	if err != nil {
		return fmt.Errorf("failed searching '%s': %w", dirDisplayPath, err)
	}

	for _, fi := range children {
		if isHidden(fi.Name()) {
			continue
		}

		displayPath := path.Join(dirDisplayPath, fi.Name())
		relPath := strings.TrimPrefix(strings.TrimPrefix(displayPath, s.scope), "/")

		le, ok := s.root.listingEntry(displayPath, relPath, fi)
		if !ok {
			continue
		}
		if strings.Contains(s.fold.String(relPath), s.term) {
			s.results = append(s.results, le)
		}

		if fi.IsDir() {
			if err = s.walk(ctx, displayPath); err != nil {
				return err
			}
		}
	}

	return nil
}
