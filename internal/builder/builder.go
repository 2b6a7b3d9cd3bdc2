// Package builder implements the Tree Builder (spec §4.3): it consumes
// bytes through a bytereader.Reader and produces a rooted tag.Tag tree,
// validating wire types, lengths, and list element-type consistency as it
// goes.
package builder

import (
	"github.com/blockmend/nbtedit/internal/bytereader"
	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/tag"
	"github.com/blockmend/nbtedit/internal/utils"
)

// Parse reads one named tag rooted at the start of data and returns it
// together with the cursor offset after the parse (callers may warn on
// trailing bytes) and a Result. The root's type must not be TAG_End.
func Parse(data []byte) (*tag.Tag, int, nbterr.Result) {
	r := bytereader.New(data)

	typ := r.PeekU8()
	if r.Failed() {
		return nil, r.Offset(), nbterr.NewAt(nbterr.Memory, int64(r.FailOffset()), "%s", r.FailDetail())
	}
	if tag.Type(typ) == tag.TypeEnd {
		return nil, r.Offset(), nbterr.New(nbterr.TypeMismatch, "root tag must not be TAG_End")
	}

	root, res := readNamedTag(r)
	if !res.IsOK() {
		return nil, r.Offset(), res
	}
	if r.Failed() {
		return nil, r.Offset(), nbterr.NewAt(nbterr.Memory, int64(r.FailOffset()), "%s", r.FailDetail())
	}
	return root, r.Offset(), nbterr.Ok()
}

// readNamedTag reads a full tag: 1-byte type, 2-byte name length, name
// bytes, then the type-specific payload. Used both for the root and
// recursively for Compound children.
func readNamedTag(r *bytereader.Reader) (*tag.Tag, nbterr.Result) {
	rawType := r.ReadU8()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	typ := tag.Type(rawType)
	if !typ.Valid() {
		return nil, nbterr.NewAt(nbterr.TypeMismatch, int64(r.Offset()-1), "invalid tag type %d", rawType)
	}
	if typ == tag.TypeEnd {
		// Compound's loop handles TAG_End itself via PeekU8; reaching here
		// means a caller asked for a named tag at a position that is
		// actually an End marker, which is a caller bug, not input
		// corruption, so the zero-length end tag is returned as-is.
		return tag.New("", tag.ZeroValue(tag.TypeEnd)), nbterr.Ok()
	}

	nameLen := r.ReadU16()
	nameBytes := r.ReadBytes(int(nameLen))
	if r.Failed() {
		return nil, readerFailure(r)
	}
	name := string(nameBytes)

	val, res := readPayload(r, typ)
	if !res.IsOK() {
		return nil, res
	}
	return tag.New(name, val), nbterr.Ok()
}

// readPayload reads the payload for typ at the cursor: the exact width
// for scalars, a length-prefixed buffer for strings/arrays, and a
// recursive structure for List/Compound. It never reads a type byte or a
// name — those belong to readNamedTag, or are absent entirely for List
// elements.
func readPayload(r *bytereader.Reader, typ tag.Type) (tag.Value, nbterr.Result) {
	switch typ {
	case tag.TypeByte:
		v := tag.ByteValue(int8(r.ReadU8()))
		return v, checkReader(r)

	case tag.TypeShort:
		v := tag.ShortValue(r.ReadI16())
		return v, checkReader(r)

	case tag.TypeInt:
		v := tag.IntValue(r.ReadI32())
		return v, checkReader(r)

	case tag.TypeLong:
		v := tag.LongValue(r.ReadI64())
		return v, checkReader(r)

	case tag.TypeFloat:
		v := tag.FloatValue(r.ReadF32())
		return v, checkReader(r)

	case tag.TypeDouble:
		v := tag.DoubleValue(r.ReadF64())
		return v, checkReader(r)

	case tag.TypeString:
		n := r.ReadU16()
		b := r.ReadBytes(int(n))
		if r.Failed() {
			return nil, readerFailure(r)
		}
		return tag.StringValue(b), nbterr.Ok()

	case tag.TypeByteArray:
		return readByteArray(r)

	case tag.TypeIntArray:
		return readIntArray(r)

	case tag.TypeLongArray:
		return readLongArray(r)

	case tag.TypeList:
		return readList(r)

	case tag.TypeCompound:
		return readCompound(r)

	default:
		return nil, nbterr.New(nbterr.TypeMismatch, "unhandled tag type %d", typ)
	}
}

func readByteArray(r *bytereader.Reader) (tag.Value, nbterr.Result) {
	length := r.ReadI32()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	if length < 0 {
		return nil, nbterr.NewAt(nbterr.Memory, int64(r.Offset()-4), "negative byte array length %d", length)
	}
	if res := guardArrayLength(uint32(length), 1); !res.IsOK() {
		return nil, res
	}
	raw := r.ReadBytes(int(length))
	if r.Failed() {
		return nil, readerFailure(r)
	}
	out := make(tag.ByteArrayValue, length)
	for i, b := range raw {
		out[i] = int8(b)
	}
	return out, nbterr.Ok()
}

func readIntArray(r *bytereader.Reader) (tag.Value, nbterr.Result) {
	length := r.ReadI32()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	if length < 0 {
		return nil, nbterr.NewAt(nbterr.Memory, int64(r.Offset()-4), "negative int array length %d", length)
	}
	if res := guardArrayLength(uint32(length), 4); !res.IsOK() {
		return nil, res
	}
	out := make(tag.IntArrayValue, length)
	for i := range out {
		out[i] = r.ReadI32()
	}
	if r.Failed() {
		return nil, readerFailure(r)
	}
	return out, nbterr.Ok()
}

func readLongArray(r *bytereader.Reader) (tag.Value, nbterr.Result) {
	length := r.ReadI32()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	if length < 0 {
		return nil, nbterr.NewAt(nbterr.Memory, int64(r.Offset()-4), "negative long array length %d", length)
	}
	if res := guardArrayLength(uint32(length), 8); !res.IsOK() {
		return nil, res
	}
	out := make(tag.LongArrayValue, length)
	for i := range out {
		out[i] = r.ReadI64()
	}
	if r.Failed() {
		return nil, readerFailure(r)
	}
	return out, nbterr.Ok()
}

func guardArrayLength(count uint32, elemSize uint64) nbterr.Result {
	size, err := utils.CalculateArraySize(count, elemSize)
	if err != nil {
		return nbterr.New(nbterr.Memory, "%v", err)
	}
	if err := utils.ValidateBufferSize(size, utils.MaxArrayElements*elemSize, "array payload"); err != nil {
		return nbterr.New(nbterr.Memory, "%v", err)
	}
	return nbterr.Ok()
}

// readList reads the TAG_List payload: a 1-byte element type, a 4-byte
// count, then count unnamed payload-only tags of that exact type.
func readList(r *bytereader.Reader) (tag.Value, nbterr.Result) {
	rawElemType := r.ReadU8()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	elemType := tag.Type(rawElemType)
	if !elemType.Valid() {
		return nil, nbterr.NewAt(nbterr.TypeMismatch, int64(r.Offset()-1), "invalid list element type %d", rawElemType)
	}

	count := r.ReadI32()
	if r.Failed() {
		return nil, readerFailure(r)
	}
	if count < 0 {
		return nil, nbterr.NewAt(nbterr.Memory, int64(r.Offset()-4), "negative list count %d", count)
	}
	if elemType == tag.TypeEnd && count > 0 {
		return nil, nbterr.New(nbterr.TypeMismatch, "list declares element-type End with non-zero count %d", count)
	}
	if err := utils.ValidateBufferSize(uint64(count), utils.MaxListElements, "list elements"); err != nil {
		return nil, nbterr.New(nbterr.Memory, "%v", err)
	}

	items := make([]tag.Value, 0, count)
	for i := int32(0); i < count; i++ {
		v, res := readPayload(r, elemType)
		if !res.IsOK() {
			return nil, res
		}
		items = append(items, v)
	}
	return tag.ListValue{Elem: elemType, Items: items}, nbterr.Ok()
}

// readCompound reads named children until a TAG_End marker is consumed.
func readCompound(r *bytereader.Reader) (tag.Value, nbterr.Result) {
	children := make(tag.CompoundValue, 0)
	for {
		next := r.PeekU8()
		if r.Failed() {
			return nil, readerFailure(r)
		}
		if tag.Type(next) == tag.TypeEnd {
			r.ReadU8() // Consume the single End byte.
			break
		}

		child, res := readNamedTag(r)
		if !res.IsOK() {
			return nil, res
		}
		children = append(children, child)
	}
	return children, nbterr.Ok()
}

func checkReader(r *bytereader.Reader) nbterr.Result {
	if r.Failed() {
		return readerFailure(r)
	}
	return nbterr.Ok()
}

func readerFailure(r *bytereader.Reader) nbterr.Result {
	return nbterr.NewAt(nbterr.Memory, int64(r.FailOffset()), "%s", r.FailDetail())
}
