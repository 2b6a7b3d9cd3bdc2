// Package mutator implements the Structural Mutator (spec §4.7): Edit,
// Set-or-create and Delete against targets resolved by pathresolver,
// converting values through valueengine and keeping container invariants
// (reindexing, buffer release) intact across insertions and removals.
package mutator

import (
	"sort"

	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/pathresolver"
	"github.com/blockmend/nbtedit/internal/tag"
	"github.com/blockmend/nbtedit/internal/valueengine"
)

// Edit resolves path against root and applies expr to every resolved
// target. All targets must succeed; on the first failure, edits already
// applied to earlier targets remain in place (an acknowledged non-atomic
// design — callers wanting atomicity should Clone the tree beforehand).
func Edit(root *tag.Tag, path, expr string) nbterr.Result {
	targets, res := pathresolver.Resolve(root, path)
	if !res.IsOK() {
		return res
	}
	for _, t := range targets {
		if r := applyTarget(t, expr); !r.IsOK() {
			return r
		}
	}
	return nbterr.Ok()
}

func applyTarget(t *pathresolver.Target, expr string) nbterr.Result {
	if t.Kind == pathresolver.KindTag {
		return valueengine.ApplyToTag(t.Tag, expr)
	}
	elemType := t.Get().Type()
	v, res := valueengine.CoerceElement(elemType, expr)
	if !res.IsOK() {
		return res
	}
	t.Set(v)
	return nbterr.Ok()
}

// SetOrCreate attempts Edit first. If the path simply did not resolve to
// anything (PATH_NOT_FOUND), it falls back to the set-or-create resolver:
// an existing child of the named parent is edited in place, otherwise a
// new tag is built from expr's JSON shape and appended.
func SetOrCreate(root *tag.Tag, path, expr string) nbterr.Result {
	res := Edit(root, path, expr)
	if res.IsOK() || res.Status != nbterr.PathNotFound {
		return res
	}

	st, res := pathresolver.ResolveForSet(root, path)
	if !res.IsOK() {
		return res
	}
	if st.Existing != nil {
		return valueengine.ApplyToTag(st.Existing, expr)
	}
	v, res := valueengine.InferFromJSON(expr)
	if !res.IsOK() {
		return res
	}
	st.AppendChild(tag.New(st.Key, v))
	return nbterr.Ok()
}

// Delete resolves path and removes every target. Deleting the root is
// rejected outright. Targets are sorted by (container, kind, descending
// index) before removal so an earlier splice never invalidates a later
// target's index within the same container.
func Delete(root *tag.Tag, path string) nbterr.Result {
	targets, res := pathresolver.Resolve(root, path)
	if !res.IsOK() {
		return res
	}
	for _, t := range targets {
		if t.IsRoot(root) {
			return nbterr.New(nbterr.Unsupported, "deleting the root tag is unsupported")
		}
	}

	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Index > b.Index
	})

	for _, t := range targets {
		t.Delete()
	}
	return nbterr.Ok()
}
