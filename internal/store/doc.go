// Package store keeps the editor session (source text, translated text
// and the download gate) in a small durable key/value store so it
// survives restarts. When the durable store is unavailable the session
// degrades to memory only.
package store
