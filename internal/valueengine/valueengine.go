// Package valueengine turns the JSON expressions accepted on the command
// line into concrete tag.Value payloads (spec §4.6). Scalars are
// range-checked against the wire type they are replacing; arrays, lists
// and compounds apply element- and patch-level rules of their own.
//
// JSON is decoded with encoding/json's UseNumber mode, following the
// pattern the rest of the corpus uses for numeric NBT payloads, so an
// integer literal is never silently rounded through float64 before the
// range check runs.
package valueengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/tag"
)

// ApplyToTag parses expr and replaces t's value in place, applying patch
// semantics when t currently holds a Compound.
func ApplyToTag(t *tag.Tag, expr string) nbterr.Result {
	newVal, res := Coerce(t.Value, expr)
	if !res.IsOK() {
		return res
	}
	t.Value = newVal
	return nbterr.Ok()
}

// Coerce converts expr into a Value compatible with existing's wire type.
// Compound targets patch their named children; List targets replace their
// whole element slice; scalar targets replace wholesale with a
// range-checked literal.
func Coerce(existing tag.Value, expr string) (tag.Value, nbterr.Result) {
	typ := existing.Type()
	raw, err := parseRaw(expr)
	if err != nil {
		if v, ok := legacyScalar(typ, expr); ok {
			return v, nbterr.Ok()
		}
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	return coerceRaw(existing, typ, raw)
}

// CoerceElement converts expr into a fresh Value of elemType, for
// replacing a single list element or array slot in isolation (the
// element itself carries no prior value to patch against).
func CoerceElement(elemType tag.Type, expr string) (tag.Value, nbterr.Result) {
	raw, err := parseRaw(expr)
	if err != nil {
		if v, ok := legacyScalar(elemType, expr); ok {
			return v, nbterr.Ok()
		}
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	return coerceRaw(tag.ZeroValue(elemType), elemType, raw)
}

// InferFromJSON builds a brand-new Value purely from expr's JSON shape,
// for set-or-create construction of a child with no existing type to
// coerce against.
func InferFromJSON(expr string) (tag.Value, nbterr.Result) {
	raw, err := parseRaw(expr)
	if err != nil {
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	return inferRaw(raw)
}

func parseRaw(expr string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(expr), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func coerceRaw(existing tag.Value, typ tag.Type, raw json.RawMessage) (tag.Value, nbterr.Result) {
	switch typ {
	case tag.TypeByte, tag.TypeShort, tag.TypeInt, tag.TypeLong:
		return coerceIntegerScalar(typ, raw)
	case tag.TypeFloat:
		return coerceFloat(raw)
	case tag.TypeDouble:
		return coerceDouble(raw)
	case tag.TypeString:
		return coerceString(raw)
	case tag.TypeByteArray:
		return coerceByteArray(raw)
	case tag.TypeIntArray:
		return coerceIntArray(raw)
	case tag.TypeLongArray:
		return coerceLongArray(raw)
	case tag.TypeList:
		lv, ok := existing.(tag.ListValue)
		if !ok {
			return nil, nbterr.New(nbterr.TypeMismatch, "expected a list value")
		}
		return coerceList(lv, raw)
	case tag.TypeCompound:
		cv, ok := existing.(tag.CompoundValue)
		if !ok {
			return nil, nbterr.New(nbterr.TypeMismatch, "expected a compound value")
		}
		return coerceCompound(cv, raw)
	default:
		return nil, nbterr.New(nbterr.TypeMismatch, "unsupported target type %s", typ)
	}
}

func decodeNumber(raw json.RawMessage) (json.Number, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", false
	}
	return n, true
}

func isIntegral(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

func coerceIntegerScalar(typ tag.Type, raw json.RawMessage) (tag.Value, nbterr.Result) {
	n, ok := decodeNumber(raw)
	if !ok {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON number")
	}
	if !isIntegral(n) {
		return nil, nbterr.New(nbterr.NumericRange, "%s has a fractional or exponent component", n)
	}
	v, err := n.Int64()
	if err != nil {
		return nil, nbterr.New(nbterr.NumericRange, "%s does not fit a signed 64-bit integer", n)
	}
	switch typ {
	case tag.TypeByte:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, nbterr.New(nbterr.NumericRange, "%d out of range for Byte", v)
		}
		return tag.ByteValue(v), nbterr.Ok()
	case tag.TypeShort:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, nbterr.New(nbterr.NumericRange, "%d out of range for Short", v)
		}
		return tag.ShortValue(v), nbterr.Ok()
	case tag.TypeInt:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, nbterr.New(nbterr.NumericRange, "%d out of range for Int", v)
		}
		return tag.IntValue(v), nbterr.Ok()
	case tag.TypeLong:
		return tag.LongValue(v), nbterr.Ok()
	}
	return nil, nbterr.New(nbterr.TypeMismatch, "not an integer scalar type")
}

func decodeFloat(raw json.RawMessage) (float64, bool) {
	n, ok := decodeNumber(raw)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func coerceDouble(raw json.RawMessage) (tag.Value, nbterr.Result) {
	f, ok := decodeFloat(raw)
	if !ok {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON number")
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, nbterr.New(nbterr.NumericRange, "value is not finite")
	}
	return tag.DoubleValue(f), nbterr.Ok()
}

func coerceFloat(raw json.RawMessage) (tag.Value, nbterr.Result) {
	f, ok := decodeFloat(raw)
	if !ok {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON number")
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, nbterr.New(nbterr.NumericRange, "value is not finite")
	}
	if math.Abs(f) > math.MaxFloat32 {
		return nil, nbterr.New(nbterr.NumericRange, "%g out of range for Float", f)
	}
	return tag.FloatValue(float32(f)), nbterr.Ok()
}

// asciiCollapse renders s as opaque NBT string bytes: codepoints beyond
// ASCII collapse to '?', matching the legacy client's modified-UTF-8
// handling of escapes it did not understand.
func asciiCollapse(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 127 {
			out = append(out, '?')
		} else {
			out = append(out, byte(r))
		}
	}
	return out
}

func coerceString(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON string")
	}
	return tag.StringValue(asciiCollapse(s)), nbterr.Ok()
}

func coerceByteArray(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON array")
	}
	out := make(tag.ByteArrayValue, len(elems))
	for i, e := range elems {
		v, res := coerceIntegerScalar(tag.TypeByte, e)
		if !res.IsOK() {
			return nil, res
		}
		out[i] = int8(v.(tag.ByteValue))
	}
	return out, nbterr.Ok()
}

func coerceIntArray(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON array")
	}
	out := make(tag.IntArrayValue, len(elems))
	for i, e := range elems {
		v, res := coerceIntegerScalar(tag.TypeInt, e)
		if !res.IsOK() {
			return nil, res
		}
		out[i] = int32(v.(tag.IntValue))
	}
	return out, nbterr.Ok()
}

func coerceLongArray(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON array")
	}
	out := make(tag.LongArrayValue, len(elems))
	for i, e := range elems {
		v, res := coerceIntegerScalar(tag.TypeLong, e)
		if !res.IsOK() {
			return nil, res
		}
		out[i] = int64(v.(tag.LongValue))
	}
	return out, nbterr.Ok()
}

func coerceList(existing tag.ListValue, raw json.RawMessage) (tag.Value, nbterr.Result) {
	if existing.Elem == tag.TypeEnd {
		return nil, nbterr.New(nbterr.Unsupported, "list element type is not yet known")
	}
	if existing.Elem == tag.TypeCompound || existing.Elem == tag.TypeList {
		return nil, nbterr.New(nbterr.Unsupported, "whole-list replacement of compound or list elements is unsupported")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON array")
	}
	items := make([]tag.Value, len(elems))
	for i, e := range elems {
		v, res := coerceRaw(tag.ZeroValue(existing.Elem), existing.Elem, e)
		if !res.IsOK() {
			return nil, res
		}
		items[i] = v
	}
	return tag.ListValue{Elem: existing.Elem, Items: items}, nbterr.Ok()
}

func coerceCompound(existing tag.CompoundValue, raw json.RawMessage) (tag.Value, nbterr.Result) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, nbterr.New(nbterr.TypeMismatch, "expected a JSON object")
	}
	keys, err := objectKeyOrder(raw)
	if err != nil {
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	for _, key := range keys {
		child := findChild(existing, key)
		if child == nil {
			return nil, nbterr.New(nbterr.TypeMismatch, "unknown child %q", key)
		}
		newVal, res := Coerce(child.Value, string(obj[key]))
		if !res.IsOK() {
			return nil, res
		}
		child.Value = newVal
	}
	return existing, nbterr.Ok()
}

func findChild(cv tag.CompoundValue, name string) *tag.Tag {
	for _, c := range cv {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// objectKeyOrder walks raw's token stream to recover the source order of
// an object's keys; map decoding alone does not preserve it.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func inferRaw(raw json.RawMessage) (tag.Value, nbterr.Result) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nbterr.New(nbterr.InvalidJSON, "empty expression")
	}
	switch trimmed[0] {
	case '{':
		return inferCompound(raw)
	case '[':
		return inferList(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
		}
		return tag.StringValue(asciiCollapse(s)), nbterr.Ok()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
		}
		if b {
			return tag.ByteValue(1), nbterr.Ok()
		}
		return tag.ByteValue(0), nbterr.Ok()
	case 'n':
		return nil, nbterr.New(nbterr.Unsupported, "null has no NBT representation")
	default:
		return inferNumber(raw)
	}
}

func inferCompound(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	keys, err := objectKeyOrder(raw)
	if err != nil {
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	children := make(tag.CompoundValue, 0, len(keys))
	for _, k := range keys {
		v, res := inferRaw(obj[k])
		if !res.IsOK() {
			return nil, res
		}
		children = append(children, tag.New(k, v))
	}
	return children, nbterr.Ok()
}

func inferList(raw json.RawMessage) (tag.Value, nbterr.Result) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nbterr.New(nbterr.InvalidJSON, "%v", err)
	}
	if len(elems) == 0 {
		return tag.ListValue{Elem: tag.TypeEnd}, nbterr.Ok()
	}
	first, res := inferRaw(elems[0])
	if !res.IsOK() {
		return nil, res
	}
	elemType := first.Type()
	if elemType == tag.TypeCompound || elemType == tag.TypeList {
		return nil, nbterr.New(nbterr.Unsupported, "inferring nested compound or list elements is unsupported")
	}
	items := make([]tag.Value, len(elems))
	items[0] = first
	for i := 1; i < len(elems); i++ {
		v, res := coerceRaw(tag.ZeroValue(elemType), elemType, elems[i])
		if !res.IsOK() {
			return nil, res
		}
		items[i] = v
	}
	return tag.ListValue{Elem: elemType, Items: items}, nbterr.Ok()
}

func inferNumber(raw json.RawMessage) (tag.Value, nbterr.Result) {
	n, ok := decodeNumber(raw)
	if !ok {
		return nil, nbterr.New(nbterr.InvalidJSON, "invalid number")
	}
	if isIntegral(n) {
		v, err := n.Int64()
		if err != nil {
			return nil, nbterr.New(nbterr.NumericRange, "%s does not fit a signed 64-bit integer", n)
		}
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return tag.IntValue(v), nbterr.Ok()
		}
		return tag.LongValue(v), nbterr.Ok()
	}
	f, err := n.Float64()
	if err != nil {
		return nil, nbterr.New(nbterr.NumericRange, "%s is not representable as a float", n)
	}
	return tag.DoubleValue(f), nbterr.Ok()
}

// legacyScalar accepts a bare decimal or floating-point literal for
// numeric scalar targets when expr does not parse as JSON at all, for
// compatibility with editors that pass unquoted numeric shorthand.
func legacyScalar(typ tag.Type, expr string) (tag.Value, bool) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, false
	}
	switch typ {
	case tag.TypeByte:
		v, err := strconv.ParseInt(trimmed, 10, 8)
		if err != nil {
			return nil, false
		}
		return tag.ByteValue(v), true
	case tag.TypeShort:
		v, err := strconv.ParseInt(trimmed, 10, 16)
		if err != nil {
			return nil, false
		}
		return tag.ShortValue(v), true
	case tag.TypeInt:
		v, err := strconv.ParseInt(trimmed, 10, 32)
		if err != nil {
			return nil, false
		}
		return tag.IntValue(v), true
	case tag.TypeLong:
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, false
		}
		return tag.LongValue(v), true
	case tag.TypeFloat:
		v, err := strconv.ParseFloat(trimmed, 32)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, false
		}
		return tag.FloatValue(float32(v)), true
	case tag.TypeDouble:
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, false
		}
		return tag.DoubleValue(v), true
	default:
		return nil, false
	}
}
