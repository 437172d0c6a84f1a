// Package handler implements the HTTP handler that serves a directory tree.
//
// Every request is dispatched to one of a few outcomes: a file streamed from
// the tree, an HTML directory listing, HTML search results, a redirect that
// adds the trailing slash to directory paths, or a short plain text error.
// Paths that don't exist and paths outside of the served root are
// indistinguishable to clients.
package handler
