// Package logging provides file-based structured logging with rotation
// for maxsimdb. Logs are written as JSON via log/slog, optionally
// mirrored to stderr, and rotated by size with a bounded backlog.
package logging
