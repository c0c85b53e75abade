//go:build !invariants && !race

package invariants

// Enabled is true if the binary was built with the "invariants" or "race"
// build tag.
const Enabled = false

func assertionFailed(format string, args ...interface{}) {}
