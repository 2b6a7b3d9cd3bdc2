package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/tag"
)

// writeDump renders root as an indented text tree and writes it to
// outPath. Console/text pretty-printing is explicitly out of the core
// engine's scope (spec §1: "console pretty-printing of a tree (pure
// display)"), so it lives here in the CLI driver alongside the rest of
// the output handling.
func writeDump(outPath string, root *tag.Tag) error {
	f, err := os.Create(outPath)
	if err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to create dump file %q", outPath), err).Err()
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	dumpTag(w, root, 0)
	return w.Flush()
}

func dumpTag(w *bufio.Writer, t *tag.Tag, depth int) {
	indent(w, depth)
	switch v := t.Value.(type) {
	case tag.CompoundValue:
		fmt.Fprintf(w, "%s(%q): %d entries\n", t.Type(), t.Name, len(v))
		indent(w, depth)
		fmt.Fprintln(w, "{")
		for _, child := range v {
			dumpTag(w, child, depth+1)
		}
		indent(w, depth)
		fmt.Fprintln(w, "}")
	case tag.ListValue:
		fmt.Fprintf(w, "%s(%q): %d entries of %s\n", t.Type(), t.Name, len(v.Items), v.Elem)
		indent(w, depth)
		fmt.Fprintln(w, "[")
		for _, item := range v.Items {
			dumpValue(w, item, depth+1)
		}
		indent(w, depth)
		fmt.Fprintln(w, "]")
	default:
		fmt.Fprintf(w, "%s(%q): %s\n", t.Type(), t.Name, formatScalar(t.Value))
	}
}

// dumpValue renders an unnamed List element or nested value, which
// carries no Tag of its own.
func dumpValue(w *bufio.Writer, v tag.Value, depth int) {
	indent(w, depth)
	switch vv := v.(type) {
	case tag.CompoundValue:
		fmt.Fprintf(w, "%s: %d entries\n", v.Type(), len(vv))
		indent(w, depth)
		fmt.Fprintln(w, "{")
		for _, child := range vv {
			dumpTag(w, child, depth+1)
		}
		indent(w, depth)
		fmt.Fprintln(w, "}")
	case tag.ListValue:
		fmt.Fprintf(w, "%s: %d entries of %s\n", v.Type(), len(vv.Items), vv.Elem)
		indent(w, depth)
		fmt.Fprintln(w, "[")
		for _, item := range vv.Items {
			dumpValue(w, item, depth+1)
		}
		indent(w, depth)
		fmt.Fprintln(w, "]")
	default:
		fmt.Fprintf(w, "%s: %s\n", v.Type(), formatScalar(v))
	}
}

func formatScalar(v tag.Value) string {
	switch vv := v.(type) {
	case tag.ByteValue:
		return fmt.Sprintf("%d", int8(vv))
	case tag.ShortValue:
		return fmt.Sprintf("%d", int16(vv))
	case tag.IntValue:
		return fmt.Sprintf("%d", int32(vv))
	case tag.LongValue:
		return fmt.Sprintf("%d", int64(vv))
	case tag.FloatValue:
		return fmt.Sprintf("%g", float32(vv))
	case tag.DoubleValue:
		return fmt.Sprintf("%g", float64(vv))
	case tag.StringValue:
		return fmt.Sprintf("%q", string(vv))
	case tag.ByteArrayValue:
		return fmt.Sprintf("[%d bytes]", len(vv))
	case tag.IntArrayValue:
		return fmt.Sprintf("[%d ints]", len(vv))
	case tag.LongArrayValue:
		return fmt.Sprintf("[%d longs]", len(vv))
	default:
		return "?"
	}
}

func indent(w *bufio.Writer, depth int) {
	for i := 0; i < depth; i++ {
		_, _ = w.WriteString("  ")
	}
}
