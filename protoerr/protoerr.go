// Package protoerr classifies the three error kinds spec.md §7 defines —
// protocol-fatal, protocol-recoverable, and transient — with two wrapper
// types, Fatal and Recoverable, that a caller can test with errors.As (or
// IsFatal/IsRecoverable) instead of string-matching or relying on a
// hard-coded retry policy baked into the signaling packages themselves. An
// error wrapped in neither is transient.
//
// The teacher (legacy/errors.go) declares a flat list of package-scope
// sentinel errors.New values and lets call sites return them directly.
// That flat style doesn't carry the fatal/recoverable distinction spec.md
// §7 requires, so this package replaces it with the two wrapper types
// below. The negotiator and conference packages wrap the errors they
// report in one of them; the jingle package returns plain errors, which
// the conference controller wraps as Fatal.
package protoerr

import "errors"

// Fatal marks an error that violates the signaling contract in a way the
// controller cannot recover from: the session must be torn down. Wrap with
// Fatalf; test with errors.As or IsFatal.
type Fatal struct {
	err error
}

func (f *Fatal) Error() string { return f.err.Error() }
func (f *Fatal) Unwrap() error { return f.err }

// Recoverable marks an error describing a dropped frame, unknown
// attribute, or stray reply: the caller logs a warning and keeps going.
// Wrap with Recoverablef; test with errors.As or IsRecoverable.
type Recoverable struct {
	err error
}

func (r *Recoverable) Error() string { return r.err.Error() }
func (r *Recoverable) Unwrap() error { return r.err }

// Fatalf wraps err as protocol-fatal.
func Fatalf(err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{err: err}
}

// Recoverablef wraps err as protocol-recoverable.
func Recoverablef(err error) error {
	if err == nil {
		return nil
	}
	return &Recoverable{err: err}
}

// IsFatal reports whether err (or anything it wraps) is marked fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

// IsRecoverable reports whether err (or anything it wraps) is marked
// recoverable.
func IsRecoverable(err error) bool {
	var r *Recoverable
	return errors.As(err, &r)
}
