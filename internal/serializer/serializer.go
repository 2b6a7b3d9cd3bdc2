// Package serializer implements the NBT Serialiser (spec §4.8): it writes
// a tag.Tag tree back to an io.Writer in exact big-endian wire order, the
// mirror image of internal/builder's reads.
package serializer

import (
	"io"
	"math"

	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/tag"
)

// Write emits root as a complete named tag: 1-byte type, 2-byte name
// length plus name bytes, then the type's payload.
func Write(w io.Writer, root *tag.Tag) nbterr.Result {
	e := &encoder{w: w}
	e.writeNamedTag(root)
	if e.err != nil {
		return nbterr.New(nbterr.Memory, "%v", e.err)
	}
	return nbterr.Ok()
}

// encoder accumulates the first write error and short-circuits every
// subsequent write, mirroring bytereader's sticky-failure cursor on the
// write side.
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) writeBytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) writeU8(v uint8) {
	e.writeBytes([]byte{v})
}

func (e *encoder) writeU16(v uint16) {
	e.writeBytes([]byte{byte(v >> 8), byte(v)})
}

func (e *encoder) writeU32(v uint32) {
	e.writeBytes([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (e *encoder) writeU64(v uint64) {
	e.writeU32(uint32(v >> 32))
	e.writeU32(uint32(v))
}

func (e *encoder) writeF32(v float32) {
	e.writeU32(math.Float32bits(v))
}

func (e *encoder) writeF64(v float64) {
	e.writeU64(math.Float64bits(v))
}

func (e *encoder) writeNamedTag(t *tag.Tag) {
	if e.err != nil {
		return
	}
	e.writeU8(uint8(t.Type()))
	name := []byte(t.Name)
	e.writeU16(uint16(len(name)))
	e.writeBytes(name)
	e.writePayload(t.Value)
}

func (e *encoder) writePayload(v tag.Value) {
	if e.err != nil {
		return
	}
	switch vv := v.(type) {
	case tag.ByteValue:
		e.writeU8(uint8(vv))
	case tag.ShortValue:
		e.writeU16(uint16(vv))
	case tag.IntValue:
		e.writeU32(uint32(vv))
	case tag.LongValue:
		e.writeU64(uint64(vv))
	case tag.FloatValue:
		e.writeF32(float32(vv))
	case tag.DoubleValue:
		e.writeF64(float64(vv))
	case tag.StringValue:
		e.writeU16(uint16(len(vv)))
		e.writeBytes(vv)
	case tag.ByteArrayValue:
		e.writeU32(uint32(len(vv)))
		for _, b := range vv {
			e.writeU8(uint8(b))
		}
	case tag.IntArrayValue:
		e.writeU32(uint32(len(vv)))
		for _, n := range vv {
			e.writeU32(uint32(n))
		}
	case tag.LongArrayValue:
		e.writeU32(uint32(len(vv)))
		for _, n := range vv {
			e.writeU64(uint64(n))
		}
	case tag.ListValue:
		e.writeList(vv)
	case tag.CompoundValue:
		e.writeCompound(vv)
	default:
		// A nil or otherwise unrecognised Value has no wire representation;
		// treat it as the zero payload of TAG_End (nothing to write).
	}
}

// writeList emits the 1-byte element type, then a 4-byte count of only
// those elements whose runtime type matches the declared element type
// (spec §4.8), then each matching element's bare payload.
func (e *encoder) writeList(lv tag.ListValue) {
	e.writeU8(uint8(lv.Elem))

	kept := make([]tag.Value, 0, len(lv.Items))
	for _, item := range lv.Items {
		if item != nil && item.Type() == lv.Elem {
			kept = append(kept, item)
		}
	}
	e.writeU32(uint32(len(kept)))
	for _, item := range kept {
		e.writePayload(item)
	}
}

func (e *encoder) writeCompound(cv tag.CompoundValue) {
	for _, child := range cv {
		e.writeNamedTag(child)
	}
	e.writeU8(uint8(tag.TypeEnd))
}
