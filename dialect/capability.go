package dialect

import (
	"errors"
	"fmt"
)

// Capability names reported by CapabilityError.
const (
	CapTruncateIdentityReset = "supportsTruncateIdentityReset"
	CapDirectColumnRename    = "supportsDirectColumnRename"
	CapDirectColumnDrop      = "supportsDirectColumnDrop"
	CapTransactionalDDL      = "supportsTransactionalDDL"
)

// ErrUnsupported is matched by every CapabilityError.
var ErrUnsupported = errors.New("dialect: unsupported capability")

// CapabilityError is returned when a construct requires a capability
// the target dialect lacks.
type CapabilityError struct {
	Dialect    string
	Capability string
	// Hint optionally names the alternative API.
	Hint string
}

// Error returns the error string.
func (e *CapabilityError) Error() string {
	msg := fmt.Sprintf("dialect: %s does not support %s", e.Dialect, e.Capability)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Is reports whether the target error matches ErrUnsupported.
func (e *CapabilityError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewCapabilityError returns a new CapabilityError.
func NewCapabilityError(dialect, capability string) *CapabilityError {
	return &CapabilityError{Dialect: dialect, Capability: capability}
}

// IsUnsupported returns true if the error is a CapabilityError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *CapabilityError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// Has reports whether the grammar supports the named capability.
func (g *Grammar) Has(capability string) bool {
	switch capability {
	case CapTruncateIdentityReset:
		return g.TruncateIdentityReset
	case CapDirectColumnRename:
		return g.DirectColumnRename
	case CapDirectColumnDrop:
		return g.DirectColumnDrop
	case CapTransactionalDDL:
		return g.TransactionalDDL
	}
	return false
}

// Require returns a CapabilityError if the grammar lacks the capability.
func (g *Grammar) Require(capability string) error {
	if g.Has(capability) {
		return nil
	}
	return NewCapabilityError(g.Name, capability)
}
