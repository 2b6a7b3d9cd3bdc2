// Package nbtedit_test exercises the concrete scenarios from spec §8
// end-to-end: parse, resolve/edit/set/delete, and serialise, tying
// together the packages under internal/ the way a real edit session
// would. It lives at the module root (not inside any internal/ package)
// so it can drive the full pipeline the way cmd/nbtedit does.
package nbtedit_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockmend/nbtedit/internal/builder"
	"github.com/blockmend/nbtedit/internal/mutator"
	"github.com/blockmend/nbtedit/internal/region"
	"github.com/blockmend/nbtedit/internal/serializer"
	"github.com/blockmend/nbtedit/internal/tag"
)

func roundTrip(t *testing.T, root *tag.Tag) *tag.Tag {
	t.Helper()
	var buf bytes.Buffer
	res := serializer.Write(&buf, root)
	require.True(t, res.IsOK(), res.Error())
	reparsed, _, res := builder.Parse(buf.Bytes())
	require.True(t, res.IsOK(), res.Error())
	return reparsed
}

// S1 — scalar edit.
func TestScenarioScalarEdit(t *testing.T) {
	root := tag.New("root", tag.CompoundValue{
		tag.New("Age", tag.ShortValue(10)),
	})

	res := mutator.Edit(root, "root/Age", "42")
	require.True(t, res.IsOK(), res.Error())

	age, _ := root.FindChild("Age")
	require.Equal(t, tag.ShortValue(42), age.Value)

	reparsed := roundTrip(t, root)
	age, _ = reparsed.FindChild("Age")
	require.Equal(t, tag.ShortValue(42), age.Value)
}

func inventoryFixture() *tag.Tag {
	slot := func(n int8) tag.Value {
		return tag.CompoundValue{tag.New("Slot", tag.ByteValue(n))}
	}
	return tag.New("root", tag.CompoundValue{
		tag.New("Inventory", tag.ListValue{
			Elem: tag.TypeCompound,
			Items: []tag.Value{
				slot(1), slot(2), slot(3),
			},
		}),
	})
}

// S2 — list element.
func TestScenarioListElementEdit(t *testing.T) {
	root := inventoryFixture()

	res := mutator.Edit(root, "root/Inventory[1]/Slot", "7")
	require.True(t, res.IsOK(), res.Error())

	inv, _ := root.FindChild("Inventory")
	items := inv.Value.(tag.ListValue).Items

	slot0 := items[0].(tag.CompoundValue)
	slot1 := items[1].(tag.CompoundValue)
	slot2 := items[2].(tag.CompoundValue)

	child0, _ := findInCompound(slot0, "Slot")
	child1, _ := findInCompound(slot1, "Slot")
	child2, _ := findInCompound(slot2, "Slot")

	require.Equal(t, tag.ByteValue(1), child0.Value)
	require.Equal(t, tag.ByteValue(7), child1.Value)
	require.Equal(t, tag.ByteValue(3), child2.Value)
}

// S3 — wildcard edit.
func TestScenarioWildcardEdit(t *testing.T) {
	root := inventoryFixture()

	res := mutator.Edit(root, "root/Inventory[*]/Slot", "0")
	require.True(t, res.IsOK(), res.Error())

	inv, _ := root.FindChild("Inventory")
	items := inv.Value.(tag.ListValue).Items
	for _, item := range items {
		cv := item.(tag.CompoundValue)
		child, _ := findInCompound(cv, "Slot")
		require.Equal(t, tag.ByteValue(0), child.Value)
	}
}

func findInCompound(cv tag.CompoundValue, name string) (*tag.Tag, int) {
	for i, c := range cv {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

// S4 — set creates a child.
func TestScenarioSetCreatesChild(t *testing.T) {
	root := tag.New("root", tag.CompoundValue{
		tag.New("A", tag.IntValue(1)),
	})

	res := mutator.SetOrCreate(root, "root/B", `"hello"`)
	require.True(t, res.IsOK(), res.Error())

	a, _ := root.FindChild("A")
	require.Equal(t, tag.IntValue(1), a.Value)
	b, _ := root.FindChild("B")
	require.NotNil(t, b)
	require.Equal(t, tag.StringValue("hello"), b.Value)
}

// S5 — delete with re-indexing.
func TestScenarioDeleteReindexes(t *testing.T) {
	root := tag.New("root", tag.CompoundValue{
		tag.New("arr", tag.IntArrayValue{10, 20, 30, 40}),
	})

	res := mutator.Delete(root, "root/arr[1]")
	require.True(t, res.IsOK(), res.Error())
	arr, _ := root.FindChild("arr")
	require.Equal(t, tag.IntArrayValue{10, 30, 40}, arr.Value)

	res = mutator.Delete(root, "root/arr[2]")
	require.True(t, res.IsOK(), res.Error())
	arr, _ = root.FindChild("arr")
	require.Equal(t, tag.IntArrayValue{10, 30}, arr.Value)
}

// S6 — region chunk round-trip.
func TestScenarioRegionChunkRoundTrip(t *testing.T) {
	chunkRoot := tag.New("", tag.CompoundValue{
		tag.New("Level", tag.CompoundValue{
			tag.New("xPos", tag.IntValue(3)),
			tag.New("zPos", tag.IntValue(5)),
		}),
	})
	var raw bytes.Buffer
	res := serializer.Write(&raw, chunkRoot)
	require.True(t, res.IsOK(), res.Error())

	reg := &region.Region{}
	slot := &reg.Slots[region.Index(3, 5)]
	require.NoError(t, slot.SetDecompressed(raw.Bytes(), region.CompressionZlib))
	slot.Timestamp = 1000

	fileBytes, res := region.Write(reg)
	require.True(t, res.IsOK(), res.Error())

	reread, res := region.Read(fileBytes)
	require.True(t, res.IsOK(), res.Error())

	loaded, ok := reread.Get(3, 5)
	require.True(t, ok)
	require.Equal(t, region.CompressionZlib, loaded.Compression)

	decompressed, err := loaded.Decompress()
	require.NoError(t, err)
	parsed, _, res := builder.Parse(decompressed)
	require.True(t, res.IsOK(), res.Error())

	res = mutator.Edit(parsed, `/Level/xPos`, "9")
	require.True(t, res.IsOK(), res.Error())

	var editedRaw bytes.Buffer
	res = serializer.Write(&editedRaw, parsed)
	require.True(t, res.IsOK(), res.Error())
	require.NoError(t, loaded.SetDecompressed(editedRaw.Bytes(), loaded.Compression))
	loaded.Timestamp = 2000
	reg.Slots[region.Index(3, 5)] = *loaded

	finalBytes, res := region.Write(reg)
	require.True(t, res.IsOK(), res.Error())

	final, res := region.Read(finalBytes)
	require.True(t, res.IsOK(), res.Error())

	finalSlot, ok := final.Get(3, 5)
	require.True(t, ok)
	require.Equal(t, region.CompressionZlib, finalSlot.Compression)
	require.Equal(t, uint32(2000), finalSlot.Timestamp)

	// Every other slot is still empty.
	for x := 0; x < region.GridSize; x++ {
		for z := 0; z < region.GridSize; z++ {
			if x == 3 && z == 5 {
				continue
			}
			_, present := final.Get(x, z)
			require.False(t, present)
		}
	}
}

// Empty-list-with-End-element-type round-trips but rejects an edit.
func TestEmptyEndListRoundTripsAndRejectsEdit(t *testing.T) {
	root := tag.New("root", tag.CompoundValue{
		tag.New("empty", tag.ListValue{Elem: tag.TypeEnd}),
	})
	reparsed := roundTrip(t, root)
	child, _ := reparsed.FindChild("empty")
	lv := child.Value.(tag.ListValue)
	require.Equal(t, tag.TypeEnd, lv.Elem)
	require.Empty(t, lv.Items)

	res := mutator.Edit(root, "root/empty", "[]")
	require.False(t, res.IsOK())
}
