//go:build invariants || race

package invariants

import "github.com/cockroachdb/errors"

// Enabled is true if the binary was built with the "invariants" or "race"
// build tag.
const Enabled = true

func assertionFailed(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}
