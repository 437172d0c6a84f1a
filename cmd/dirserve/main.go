package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/dirserve/app"
	aerrors "go.hackfix.me/dirserve/app/errors"
)

func main() {
	stderr := colorable.NewColorable(os.Stderr)

	wd, err := os.Getwd()
	if err != nil {
		aerrors.Errorf(stderr, err)
		os.Exit(1)
	}

	a, err := app.New("dirserve", filepath.Join(xdg.ConfigHome, "dirserve", "config.json"),
		app.WithTimeNow(time.Now),
		app.WithFDs(os.Stdin, colorable.NewColorable(os.Stdout), stderr),
		app.WithFS(osfs.New()),
		app.WithWorkDir(wd),
		app.WithLogger(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())),
	)
	if err != nil {
		aerrors.Errorf(stderr, err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Errorf(stderr, err)
		os.Exit(1)
	}
}
