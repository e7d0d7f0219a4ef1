package discovery

import (
	"maps"
	"slices"

	f "github.com/multimediallc/mixedcallstack/pkg/functional"
)

// Tracker remembers the newest side file per domain of one process.
type Tracker struct {
	current map[int]Name
}

func NewTracker() *Tracker {
	return &Tracker{current: make(map[int]Name)}
}

// Update records names and reports whether any domain gained a newer file.
// When it does, whatever was read from the older files is stale.
func (t *Tracker) Update(names []Name) bool {
	changed := false
	for _, name := range names {
		if cur, ok := t.current[name.Domain]; ok && cur.Sequence >= name.Sequence {
			continue
		}
		t.current[name.Domain] = name
		changed = true
	}
	return changed
}

// Files returns the current file of every domain, ordered by domain.
func (t *Tracker) Files() []Name {
	domains := slices.Sorted(maps.Keys(t.current))
	files := make([]Name, 0, len(domains))
	for _, domain := range domains {
		files = append(files, t.current[domain])
	}
	return files
}

func (t *Tracker) Paths() []string {
	return f.Map(t.Files(), func(name Name) string { return name.Path })
}

func (t *Tracker) Reset() {
	clear(t.current)
}
