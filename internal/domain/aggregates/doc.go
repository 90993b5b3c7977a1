// Package aggregates declares the dedupe write boundaries: the candidate state
// machine and person merges. Each write is atomic and reports failures as *Error
// with a Code that transports map to their own statuses.
package aggregates
