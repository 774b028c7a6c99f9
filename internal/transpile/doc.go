// Package transpile submits Pascal source to a transpilation backend and
// normalizes the reply into a Result. A reply that reports failure is a
// Result with Succeeded=false; a request that never completes or a reply
// that cannot be understood is an error.
package transpile
