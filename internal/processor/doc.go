// Package processor runs pas2cs without a window: it transpiles a file
// through the same session controller the GUI uses, prints or resets the
// saved session, and starts the GUI when no work was requested.
package processor
