// Package merge classifies transformed entities against currently stored
// state. Classification is purely id-set comparison plus a content-equality
// check; version-chain semantics for submissions and grades live in their
// versioning services, not here.
package merge

// Changeset groups entities by the action an import run must take.
// ToUpdate only contains entities whose content differs from the stored
// copy; identical entities land in Unchanged and are never re-written.
type Changeset[T any] struct {
	ToCreate  []T
	ToUpdate  []T
	Unchanged []T
}

// Classify splits incoming entities into create/update/unchanged sets given
// the stored entities for the same scope, keyed by id. contentEquals compares
// snapshot-sourced fields only; identifiers, derived counters, and timestamps
// are expected to be excluded by the caller's comparator.
func Classify[T any](incoming []T, existing map[string]T, id func(T) string, contentEquals func(incoming, stored T) bool) Changeset[T] {
	var set Changeset[T]
	for _, entity := range incoming {
		stored, found := existing[id(entity)]
		switch {
		case !found:
			set.ToCreate = append(set.ToCreate, entity)
		case contentEquals(entity, stored):
			set.Unchanged = append(set.Unchanged, entity)
		default:
			set.ToUpdate = append(set.ToUpdate, entity)
		}
	}
	return set
}

// ArchiveSet returns the stored ids absent from the incoming set. Only
// enrollments are ever archived by snapshot absence; other entity types
// survive transient export gaps untouched.
func ArchiveSet[T any](incoming []T, existingIDs []string, id func(T) string) []string {
	present := make(map[string]bool, len(incoming))
	for _, entity := range incoming {
		present[id(entity)] = true
	}

	var missing []string
	for _, storedID := range existingIDs {
		if !present[storedID] {
			missing = append(missing, storedID)
		}
	}
	return missing
}
