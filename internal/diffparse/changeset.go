package diffparse

// Changeset is the normalized representation of a diff: the ordered
// sequence of file changes between two repository states. It is built
// once from the raw diff and never mutated afterwards; it defines
// exactly the set of files eligible for review findings.
type Changeset struct {
	Files []FileChange
}

// Len returns the number of file changes.
func (cs *Changeset) Len() int {
	return len(cs.Files)
}

// Empty reports whether the changeset carries no reviewable changes.
func (cs *Changeset) Empty() bool {
	return len(cs.Files) == 0
}

// Paths returns every changed path in diff order.
func (cs *Changeset) Paths() []string {
	out := make([]string, 0, len(cs.Files))
	for _, fc := range cs.Files {
		out = append(out, fc.Path)
	}
	return out
}

// Contains reports whether path is part of the changeset.
func (cs *Changeset) Contains(path string) bool {
	for _, fc := range cs.Files {
		if fc.Path == path {
			return true
		}
	}
	return false
}

// StatusOf returns the status for a changed path.
func (cs *Changeset) StatusOf(path string) (Status, bool) {
	for _, fc := range cs.Files {
		if fc.Path == path {
			return fc.Status, true
		}
	}
	return "", false
}

// TotalStats sums additions and deletions over all files.
func (cs *Changeset) TotalStats() DiffStats {
	var total DiffStats
	for _, fc := range cs.Files {
		total.Additions += fc.Stats.Additions
		total.Deletions += fc.Stats.Deletions
	}
	return total
}
