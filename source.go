package morph

import "fmt"

// Source is a single resolved morphology reference: a chunk or stratum
// morphology as found at a specific repo/ref/filename, together with the
// artifacts it is known to produce. Two Source values referring to the same
// (Repo, OriginalRef, Filename) triple are the same source, even if they
// were declared independently by different strata.
type Source struct {
	// Repo is the repository URL (or local alias) the morphology was loaded
	// from.
	Repo string
	// Filename is the morphology file's path within Repo.
	Filename string
	// OriginalRef is the ref exactly as declared in the referencing
	// morphology (a branch name, tag, or other symbolic ref), before any
	// resolution to a concrete commit.
	OriginalRef string
	// SHA1 is the concrete commit the original ref resolved to. Two sources
	// with the same Repo/Filename but different OriginalRef that happen to
	// resolve to the same SHA1 are still distinct sources: identity is by
	// declared ref, not resolved commit.
	SHA1 string
	// Prefix is the path prefix to apply when the source's tree is laid into
	// a build root, e.g. for chunks nested inside a stratum checkout.
	Prefix string

	Morphology *Morphology

	// Artifacts is the set of artifact names this source produces, in
	// declaration order, as determined from Morphology.Kind.
	Artifacts []string
}

// Key returns the identity tuple used by SourcePool to dedupe sources: a
// source is uniquely identified by where it came from, not by its content.
func (s *Source) Key() SourceKey {
	return SourceKey{Repo: s.Repo, OriginalRef: s.OriginalRef, Filename: s.Filename}
}

// SourceKey is the (repo, original ref, filename) identity triple a
// SourcePool dedupes and looks sources up by.
type SourceKey struct {
	Repo        string
	OriginalRef string
	Filename    string
}

func (k SourceKey) String() string {
	return fmt.Sprintf("%s#%s:%s", k.Repo, k.OriginalRef, k.Filename)
}
