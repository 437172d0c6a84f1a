package cli

import (
	actx "go.hackfix.me/dirserve/app/context"
)

// Search searches for files and directories under the served root.
type Search struct {
	Term string `arg:"" help:"Text to search for in paths, ignoring case. An empty term matches everything."`
	Path string `arg:"" optional:"" default:"/" help:"Directory to search in, relative to the served root."`
	Root string `help:"Served root directory. Default: the current working directory."`
}

// Run the search command.
func (c *Search) Run(appCtx *actx.Context) error {
	root, err := openRoot(appCtx, c.Root)
	if err != nil {
		return err
	}

	scope, err := resolveDir(root, c.Path)
	if err != nil {
		return err
	}

	results, err := root.Search(appCtx.Ctx, scope, c.Term)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}
	if len(results) == 0 {
		appCtx.Logger.Info("no results found", "term", c.Term, "path", scope.DisplayPath)
		return nil
	}

	return renderEntries(appCtx.Stdout, results)
}
