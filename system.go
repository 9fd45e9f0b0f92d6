package morph

// SystemMorphology describes a system image: the ordered list of strata it
// assembles, and the architecture it targets.
type SystemMorphology struct {
	// Strata lists the stratum morphology names this system assembles, in
	// declaration order. Each is built after all of its own predecessors in
	// this list; there is no per-entry build-depends to change that.
	Strata []string
	Arch   string
}
