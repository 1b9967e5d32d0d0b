// Package errors provides the typed error taxonomy of the dikit runtime.
// Every failure surfaced by the container, the tracker and the domain is an
// *AppError carrying a machine-readable ErrorCode, so callers can branch with
// errors.Is against the exported sentinels.
package errors
