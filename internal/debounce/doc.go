// Package debounce coalesces bursts of calls into a single trailing call
// that runs once the caller has been quiet for a fixed window.
package debounce
