package acr

import (
	"errors"
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/iso7816"
)

// ErrInvalidState is returned when an operation is not allowed in the
// current session or field state. Nothing is sent to the reader.
var ErrInvalidState = errors.New("invalid state")

// StatusError reports an exchange the reader answered with a failure,
// either in SW1 SW2 or in the 'C0' Status data object.
type StatusError struct {
	Op     string
	Status iso7816.StatusWord
	// Object is the failing data object index from 'C0', 0 when unknown.
	Object byte
	// Embedded is set when the failure came from 'C0' under SW 9000.
	Embedded bool
}

func (e *StatusError) Error() string {
	switch {
	case e.Embedded && e.Object != 0:
		return fmt.Sprintf("%s: reader status %s (data object %d)", e.Op, e.Status.Verbose(), e.Object)
	case e.Embedded:
		return fmt.Sprintf("%s: reader status %s", e.Op, e.Status.Verbose())
	default:
		return fmt.Sprintf("%s: status word %s", e.Op, e.Status.Verbose())
	}
}
