package lifecycle

import "errors"

// Kind is a machine-readable fault classification.
type Kind string

const (
	// KindAlreadyInstalled rejects an install when the user already has
	// an active installation.
	KindAlreadyInstalled Kind = "already_installed"
	// KindNotInstalled rejects an uninstall when no active installation
	// exists for the user.
	KindNotInstalled Kind = "not_installed"
	// KindFileStaging covers failures preparing the shared file tree.
	KindFileStaging Kind = "file_staging"
	// KindDatabase covers transaction failures; the transaction has been
	// rolled back by the time the fault is returned.
	KindDatabase Kind = "database"
	// KindVerificationFailed signals the post-commit read did not find
	// exactly one active installation row.
	KindVerificationFailed Kind = "verification_failed"
	// KindValidation covers malformed or missing staged plugin files.
	KindValidation Kind = "validation"
	// KindExportFailed rejects an update when the current installation
	// cannot be snapshot.
	KindExportFailed Kind = "export_failed"
)

// Fault is the structured error type returned by lifecycle operations.
type Fault struct {
	Kind    Kind   // Machine-readable fault kind
	Message string // Human-readable message for the caller
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return f.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is reports whether target matches this fault by kind.
func (f *Fault) Is(target error) bool {
	if t, ok := target.(*Fault); ok {
		return f.Kind == t.Kind
	}
	return false
}

// NewFault creates a fault with a kind and message.
func NewFault(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// WrapFault creates a fault that wraps an underlying cause.
func WrapFault(kind Kind, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind carried by err, or the empty Kind when err is
// not a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
