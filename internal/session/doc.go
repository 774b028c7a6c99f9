// Package session implements the editor session state machine: it keeps
// the source and translated text in sync with the persistent store,
// coalesces edits into debounced saves, runs transpile cycles and
// decides when the translation may be downloaded.
//
// A Controller is single threaded. Its methods must be called from one
// execution context (the GUI thread or a Loop), and every asynchronous
// completion is posted back to that context through a Dispatcher.
package session
