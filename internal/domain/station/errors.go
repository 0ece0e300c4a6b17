package station

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotOpen is returned by Send when the device's output connection
	// has not been prepared, or has already been shut down.
	ErrNotOpen = errors.New("output connection not open")

	// ErrNoPriorWiring is returned by Rewire when no wiring has ever been
	// applied.
	ErrNoPriorWiring = errors.New("no wiring has been applied")
)

// AmbiguousSpecError reports a device spec that matched more than one
// discovered port. It aborts the Wire call that produced it: a spec the user
// meant to select one device cannot be resolved by guessing.
type AmbiguousSpecError struct {
	Spec    string   // rendered spec, e.g. substring("pad")
	Matches []string // names of all matching ports
}

func (e *AmbiguousSpecError) Error() string {
	return fmt.Sprintf("more than one device matches %s: %s", e.Spec, strings.Join(e.Matches, ", "))
}
