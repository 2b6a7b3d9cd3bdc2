package pathresolver

import (
	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/tag"
)

// Kind distinguishes the five shapes a resolved target may take: spec
// §4.5's generic "*_ARRAY_ELEMENT" is split one kind per primitive array
// type so a caller can switch over Kind without re-inspecting the
// target's parent tag.
type Kind int

const (
	// KindTag targets a whole named tag (a compound child, or the root).
	KindTag Kind = iota
	// KindListElement targets one element of a TAG_List.
	KindListElement
	// KindByteArrayElement targets one element of a TAG_Byte_Array.
	KindByteArrayElement
	// KindIntArrayElement targets one element of a TAG_Int_Array.
	KindIntArrayElement
	// KindLongArrayElement targets one element of a TAG_Long_Array.
	KindLongArrayElement
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "TAG"
	case KindListElement:
		return "LIST_ELEMENT"
	case KindByteArrayElement:
		return "BYTE_ARRAY_ELEMENT"
	case KindIntArrayElement:
		return "INT_ARRAY_ELEMENT"
	case KindLongArrayElement:
		return "LONG_ARRAY_ELEMENT"
	default:
		return "UNKNOWN"
	}
}

// Target is one resolved location a path expression named: a whole tag,
// or one element of a list/array, addressed so the Structural Mutator
// can read, overwrite, or splice it out without re-walking the tree.
type Target struct {
	Kind Kind

	// Tag is the resolved tag itself, populated only for KindTag.
	Tag *tag.Tag

	// Index is this target's position within its immediate container:
	// the index of Tag within the parent CompoundValue (KindTag), or the
	// element index within a List/Array (the other kinds).
	Index int

	// GroupID identifies the immediate container instance this target
	// lives in. Deletions sharing a GroupID must be applied in
	// descending Index order so earlier removals don't invalidate later
	// ones (spec §4.7).
	GroupID int

	containerGet func() tag.Value
	containerSet func(tag.Value)
}

// Get returns the target's current value.
func (t *Target) Get() tag.Value {
	switch t.Kind {
	case KindTag:
		return t.Tag.Value
	case KindListElement:
		lv := t.containerGet().(tag.ListValue)
		return lv.Items[t.Index]
	case KindByteArrayElement:
		av := t.containerGet().(tag.ByteArrayValue)
		return tag.ByteValue(av[t.Index])
	case KindIntArrayElement:
		av := t.containerGet().(tag.IntArrayValue)
		return tag.IntValue(av[t.Index])
	case KindLongArrayElement:
		av := t.containerGet().(tag.LongArrayValue)
		return tag.LongValue(av[t.Index])
	default:
		return nil
	}
}

// Set overwrites the target's current value in place.
func (t *Target) Set(v tag.Value) {
	switch t.Kind {
	case KindTag:
		t.Tag.Value = v
	case KindListElement:
		lv := t.containerGet().(tag.ListValue)
		lv.Items[t.Index] = v
	case KindByteArrayElement:
		av := t.containerGet().(tag.ByteArrayValue)
		bv, _ := v.(tag.ByteValue)
		av[t.Index] = int8(bv)
	case KindIntArrayElement:
		av := t.containerGet().(tag.IntArrayValue)
		iv, _ := v.(tag.IntValue)
		av[t.Index] = int32(iv)
	case KindLongArrayElement:
		av := t.containerGet().(tag.LongArrayValue)
		lv, _ := v.(tag.LongValue)
		av[t.Index] = int64(lv)
	}
}

// IsRoot reports whether this target names the tree root itself (the
// Structural Mutator rejects deleting it).
func (t *Target) IsRoot(root *tag.Tag) bool {
	return t.Kind == KindTag && t.Tag == root
}

// Delete splices this target out of its immediate container, per spec
// §4.7: a compound child is removed by index, a list element is removed
// by index, an array element is removed by index. When the container's
// last element is removed, it is released to an empty (nil) value.
func (t *Target) Delete() {
	switch t.Kind {
	case KindTag:
		cv := t.containerGet().(tag.CompoundValue)
		t.containerSet(spliceCompound(cv, t.Index))
	case KindListElement:
		lv := t.containerGet().(tag.ListValue)
		lv.Items = spliceValues(lv.Items, t.Index)
		t.containerSet(lv)
	case KindByteArrayElement:
		av := t.containerGet().(tag.ByteArrayValue)
		t.containerSet(spliceByteArray(av, t.Index))
	case KindIntArrayElement:
		av := t.containerGet().(tag.IntArrayValue)
		t.containerSet(spliceIntArray(av, t.Index))
	case KindLongArrayElement:
		av := t.containerGet().(tag.LongArrayValue)
		t.containerSet(spliceLongArray(av, t.Index))
	}
}

func spliceCompound(cv tag.CompoundValue, idx int) tag.CompoundValue {
	out := make(tag.CompoundValue, 0, len(cv)-1)
	out = append(out, cv[:idx]...)
	out = append(out, cv[idx+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

func spliceValues(items []tag.Value, idx int) []tag.Value {
	out := make([]tag.Value, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

func spliceByteArray(av tag.ByteArrayValue, idx int) tag.ByteArrayValue {
	out := make(tag.ByteArrayValue, 0, len(av)-1)
	out = append(out, av[:idx]...)
	out = append(out, av[idx+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

func spliceIntArray(av tag.IntArrayValue, idx int) tag.IntArrayValue {
	out := make(tag.IntArrayValue, 0, len(av)-1)
	out = append(out, av[:idx]...)
	out = append(out, av[idx+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

func spliceLongArray(av tag.LongArrayValue, idx int) tag.LongArrayValue {
	out := make(tag.LongArrayValue, 0, len(av)-1)
	out = append(out, av[:idx]...)
	out = append(out, av[idx+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// cursor is an addressable position in the tree: get/set operate on
// whatever value currently lives there, whether that is the Value field
// of a real *tag.Tag or a bare, unnamed element sitting inside a List's
// Items slice.
type cursor struct {
	get func() tag.Value
	set func(tag.Value)
	id  int
}

func newTagCursor(t *tag.Tag, id int) cursor {
	return cursor{
		get: func() tag.Value { return t.Value },
		set: func(v tag.Value) { t.Value = v },
		id:  id,
	}
}

// elementCursor addresses one element of the List currently held by
// parent, re-reading parent on every access so a sibling mutation (e.g.
// another wildcard target's edit) is always seen.
func elementCursor(parent cursor, idx int, id int) cursor {
	return cursor{
		get: func() tag.Value {
			lv := parent.get().(tag.ListValue)
			return lv.Items[idx]
		},
		set: func(v tag.Value) {
			lv := parent.get().(tag.ListValue)
			lv.Items[idx] = v
		},
		id: id,
	}
}

func findChildIndex(cv tag.CompoundValue, name string) int {
	for i, c := range cv {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// idGenerator hands out increasing, per-call-stable identifiers so
// targets descended from the same container share a GroupID.
type idGenerator struct{ next int }

func (g *idGenerator) nextID() int {
	g.next++
	return g.next
}

// resolution accumulates targets and the empty-sweep diagnostic state
// across the breadth-first walk.
type resolution struct {
	targets         []*Target
	sawIndexBounds  bool
	sawTypeMismatch bool
	sawPathNotFound bool
}

var emptySweepDetail = map[nbterr.Status]string{
	nbterr.IndexBounds:  "path index out of bounds",
	nbterr.TypeMismatch: "path segment does not match the tag's type",
	nbterr.PathNotFound: "no tag matches the path",
}

func (r *resolution) emptyResult() nbterr.Result {
	best := nbterr.PathNotFound
	if r.sawTypeMismatch && !best.MoreInformative(nbterr.TypeMismatch) {
		best = nbterr.TypeMismatch
	}
	if r.sawIndexBounds && !best.MoreInformative(nbterr.IndexBounds) {
		best = nbterr.IndexBounds
	}
	return nbterr.New(best, emptySweepDetail[best])
}

// Resolve walks root per the path grammar and returns every target the
// path (with its wildcards expanded) names, breadth-first through the
// segments and index-ascending within a container (spec §5).
func Resolve(root *tag.Tag, path string) ([]*Target, nbterr.Result) {
	segments, res := ParsePath(path)
	if !res.IsOK() {
		return nil, res
	}

	gen := &idGenerator{}
	rootCursor := newTagCursor(root, gen.nextID())

	if len(segments) == 0 {
		return []*Target{{Kind: KindTag, Tag: root, Index: -1, GroupID: -1}}, nbterr.Ok()
	}

	start := 0
	aliasedFirst := segments[0].HasKey && root.Name != "" && segments[0].Key == root.Name
	if aliasedFirst {
		start = 1
		if !segments[0].HasIndex {
			if len(segments) == 1 {
				return []*Target{{Kind: KindTag, Tag: root, Index: -1, GroupID: -1}}, nbterr.Ok()
			}
		} else {
			// The root-alias segment still carries an index (e.g. the
			// root is itself a List); apply it as if the segment had no
			// key, against the root cursor.
			segments = append([]Segment{}, segments...)
			segments[0] = Segment{HasIndex: true, Wildcard: segments[0].Wildcard, Index: segments[0].Index}
			start = 0
		}
	}

	cursors := []cursor{rootCursor}
	acc := &resolution{}

	for i := start; i < len(segments); i++ {
		seg := segments[i]
		isLast := i == len(segments)-1
		var nextCursors []cursor

		for _, cur := range cursors {
			workCur := cur
			handledAsTarget := false

			if seg.HasKey {
				cv, ok := cur.get().(tag.CompoundValue)
				if !ok {
					acc.sawTypeMismatch = true
					continue
				}
				idx := findChildIndex(cv, seg.Key)
				if idx == -1 {
					acc.sawPathNotFound = true
					continue
				}
				child := cv[idx]
				if !seg.HasIndex && isLast {
					acc.targets = append(acc.targets, &Target{
						Kind: KindTag, Tag: child, Index: idx, GroupID: cur.id,
						containerGet: cur.get, containerSet: cur.set,
					})
					handledAsTarget = true
				} else {
					workCur = newTagCursor(child, gen.nextID())
				}
			}
			if handledAsTarget {
				continue
			}

			if seg.HasIndex {
				val := workCur.get()
				switch v := val.(type) {
				case tag.ListValue:
					indices, skip := selectIndices(seg, len(v.Items), acc)
					if skip {
						continue
					}
					for _, idx2 := range indices {
						if isLast {
							acc.targets = append(acc.targets, &Target{
								Kind: KindListElement, Index: idx2, GroupID: workCur.id,
								containerGet: workCur.get, containerSet: workCur.set,
							})
						} else {
							nextCursors = append(nextCursors, elementCursor(workCur, idx2, gen.nextID()))
						}
					}
				case tag.ByteArrayValue:
					if !isLast {
						acc.sawTypeMismatch = true
						continue
					}
					indices, skip := selectIndices(seg, len(v), acc)
					if skip {
						continue
					}
					for _, idx2 := range indices {
						acc.targets = append(acc.targets, &Target{
							Kind: KindByteArrayElement, Index: idx2, GroupID: workCur.id,
							containerGet: workCur.get, containerSet: workCur.set,
						})
					}
				case tag.IntArrayValue:
					if !isLast {
						acc.sawTypeMismatch = true
						continue
					}
					indices, skip := selectIndices(seg, len(v), acc)
					if skip {
						continue
					}
					for _, idx2 := range indices {
						acc.targets = append(acc.targets, &Target{
							Kind: KindIntArrayElement, Index: idx2, GroupID: workCur.id,
							containerGet: workCur.get, containerSet: workCur.set,
						})
					}
				case tag.LongArrayValue:
					if !isLast {
						acc.sawTypeMismatch = true
						continue
					}
					indices, skip := selectIndices(seg, len(v), acc)
					if skip {
						continue
					}
					for _, idx2 := range indices {
						acc.targets = append(acc.targets, &Target{
							Kind: KindLongArrayElement, Index: idx2, GroupID: workCur.id,
							containerGet: workCur.get, containerSet: workCur.set,
						})
					}
				default:
					acc.sawTypeMismatch = true
				}
				continue
			}

			// Key-only segment that wasn't the last one: carry the
			// key-resolved cursor forward to the next segment.
			nextCursors = append(nextCursors, workCur)
		}

		cursors = nextCursors
		if isLast {
			break
		}
	}

	if len(acc.targets) == 0 {
		return nil, acc.emptyResult()
	}
	return acc.targets, nbterr.Ok()
}

// selectIndices resolves seg's index (exact or wildcard) against a
// container of the given length, recording an INDEX_BOUNDS diagnostic
// and reporting skip=true if an exact index is out of range.
func selectIndices(seg Segment, length int, acc *resolution) (indices []int, skip bool) {
	if seg.Wildcard {
		indices = make([]int, length)
		for i := range indices {
			indices[i] = i
		}
		return indices, false
	}
	if seg.Index < 0 || seg.Index >= length {
		acc.sawIndexBounds = true
		return nil, true
	}
	return []int{seg.Index}, false
}

// ResolveOne is the single-target entry point (spec §4.5): it fails
// UNSUPPORTED unless the path resolves to exactly one target.
func ResolveOne(root *tag.Tag, path string) (*Target, nbterr.Result) {
	targets, res := Resolve(root, path)
	if !res.IsOK() {
		return nil, res
	}
	if len(targets) != 1 {
		return nil, nbterr.New(nbterr.Unsupported, "path resolved to %d targets, expected exactly 1", len(targets))
	}
	return targets[0], nbterr.Ok()
}

// SetTarget is the decomposed result of the set-or-create resolver
// variant (spec §4.5): the existing parent compound, the final bare key,
// and the existing child tag of that name, if any.
type SetTarget struct {
	Existing      *tag.Tag
	ExistingIndex int
	Key           string

	parentGet func() tag.Value
	parentSet func(tag.Value)
}

// AppendChild adds a freshly constructed child to the set target's
// parent compound.
func (s *SetTarget) AppendChild(child *tag.Tag) {
	cv := s.parentGet().(tag.CompoundValue)
	s.parentSet(append(cv, child))
}

// ResolveForSet walks path following only compound children and exact
// (non-wildcard) list indices, stopping one segment short so the final
// bare key can be matched against, or appended to, its parent compound
// (spec §4.5's set-or-create variant).
func ResolveForSet(root *tag.Tag, path string) (*SetTarget, nbterr.Result) {
	segments, res := ParsePath(path)
	if !res.IsOK() {
		return nil, res
	}
	if len(segments) == 0 {
		return nil, nbterr.New(nbterr.PathSyntax, "set path must name a final key")
	}
	last := segments[len(segments)-1]
	if !last.HasKey || last.HasIndex {
		return nil, nbterr.New(nbterr.PathSyntax, "set path must end in a bare key")
	}

	cur := cursor{
		get: func() tag.Value { return root.Value },
		set: func(v tag.Value) { root.Value = v },
	}

	start := 0
	if segments[0].HasKey && root.Name != "" && segments[0].Key == root.Name {
		if segments[0].HasIndex {
			return nil, nbterr.New(nbterr.Unsupported, "set path root alias may not carry an index")
		}
		start = 1
	}

	for i := start; i < len(segments)-1; i++ {
		seg := segments[i]
		if seg.Wildcard {
			return nil, nbterr.New(nbterr.Unsupported, "set path may not use a wildcard index")
		}
		if seg.HasKey {
			cv, ok := cur.get().(tag.CompoundValue)
			if !ok {
				return nil, nbterr.New(nbterr.TypeMismatch, "%q is not a compound", seg.Key)
			}
			idx := findChildIndex(cv, seg.Key)
			if idx == -1 {
				return nil, nbterr.New(nbterr.PathNotFound, "no child named %q", seg.Key)
			}
			child := cv[idx]
			cur = cursor{
				get: func() tag.Value { return child.Value },
				set: func(v tag.Value) { child.Value = v },
			}
		}
		if seg.HasIndex {
			lv, ok := cur.get().(tag.ListValue)
			if !ok {
				return nil, nbterr.New(nbterr.TypeMismatch, "indexed segment is not a list")
			}
			if seg.Index < 0 || seg.Index >= len(lv.Items) {
				return nil, nbterr.New(nbterr.IndexBounds, "list index %d out of bounds", seg.Index)
			}
			parent := cur
			idx := seg.Index
			cur = cursor{
				get: func() tag.Value { return parent.get().(tag.ListValue).Items[idx] },
				set: func(v tag.Value) { parent.get().(tag.ListValue).Items[idx] = v },
			}
		}
	}

	cv, ok := cur.get().(tag.CompoundValue)
	if !ok {
		return nil, nbterr.New(nbterr.TypeMismatch, "set target's parent is not a compound")
	}
	existing, idx := (*tag.Tag)(nil), -1
	if foundIdx := findChildIndex(cv, last.Key); foundIdx != -1 {
		existing = cv[foundIdx]
		idx = foundIdx
	}
	return &SetTarget{
		Existing:      existing,
		ExistingIndex: idx,
		Key:           last.Key,
		parentGet:     cur.get,
		parentSet:     cur.set,
	}, nbterr.Ok()
}
