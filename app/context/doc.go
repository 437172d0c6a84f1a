// Package context holds the process-wide state every CLI command runs with:
// the filesystem, logger, clock, working directory, standard streams, loaded
// configuration and build version.
//
// It's separate from the app package so that cli can import it.
package context
