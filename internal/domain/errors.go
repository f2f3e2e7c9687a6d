package domain

import "errors"

// ErrSizeProbeFailed indicates the remote size could not be determined
var ErrSizeProbeFailed = errors.New("remote size probe failed")

// ErrTransport covers connection failures, timeouts and non-success statuses during a transfer
var ErrTransport = errors.New("transport error")

// ErrSizeMismatch indicates the file on disk does not match the remote size after a transfer
var ErrSizeMismatch = errors.New("size mismatch after transfer")

// ErrLocalOversized indicates a local file larger than the remote one
var ErrLocalOversized = errors.New("local file larger than remote")

// ErrOutputUnusable marks filesystem failures that retrying cannot fix
// (permission denied, disk full, read-only filesystem, unsafe file name).
var ErrOutputUnusable = errors.New("output path unusable")

// ErrEnvironment aborts a whole run, e.g. the output directory disappeared.
var ErrEnvironment = errors.New("download environment failure")

// IsRetryable reports whether another attempt may succeed where err failed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrOutputUnusable) || errors.Is(err, ErrEnvironment) {
		return false
	}

	return errors.Is(err, ErrSizeProbeFailed) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrLocalOversized)
}
