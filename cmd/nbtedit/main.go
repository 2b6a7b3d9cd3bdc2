// Command nbtedit is the CLI driver for the NBT edit engine (spec §6):
// the only package allowed to touch os.Exit, print to stdout/stderr, or
// call into the log package. Every engine-facing call returns an
// nbterr.Result; this file is solely responsible for turning that into
// exit codes and user-facing text, the way the teacher's cmd/dump_hdf5
// owns all of its own printing and log.Fatalf calls.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockmend/nbtedit/internal/builder"
	"github.com/blockmend/nbtedit/internal/codec"
	"github.com/blockmend/nbtedit/internal/mutator"
	"github.com/blockmend/nbtedit/internal/nbterr"
	"github.com/blockmend/nbtedit/internal/region"
	"github.com/blockmend/nbtedit/internal/serializer"
	"github.com/blockmend/nbtedit/internal/tag"
)

// operation is one --edit/--set/--delete occurrence, kept in the order
// the user gave them on the command line.
type operation struct {
	Kind  string // "edit", "set", or "delete"
	Path  string
	Value string
}

func main() {
	remaining, chunkX, chunkZ, chunkSet, ops, err := splitArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	root := &cobra.Command{
		Use:   "nbtedit <file>",
		Short: "Edit Named Binary Tag (NBT) documents and region chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], chunkX, chunkZ, chunkSet, ops)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().String("dump", "", "write a text dump of the resulting tree to OUT")
	root.Flags().String("output", "", "write the edited document to PATH (default modified_output.dat for standalone input)")
	root.Flags().Bool("in-place", false, "overwrite the input file atomically")
	root.Flags().String("backup", "", "with --in-place, copy the input to input+SUFFIX before writing (default .bak)")
	root.Flags().Lookup("backup").NoOptDefVal = ".bak"

	root.SetArgs(remaining)
	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// splitArgs pulls the multi-token --chunk/--edit/--set flags out of args
// before handing the rest to cobra: pflag resolves one value per flag
// occurrence, and these three take two bare tokens apiece (spec §6), so
// they are consumed by hand here. --delete takes one token and is
// consumed here as well; everything else passes through untouched.
func splitArgs(args []string) (remaining []string, chunkX, chunkZ int, chunkSet bool, ops []operation, err error) {
	i := 0
	for i < len(args) {
		switch args[i] {
		case "--chunk":
			if i+2 >= len(args) {
				return nil, 0, 0, false, nil, fmt.Errorf("--chunk requires X and Z")
			}
			x, errX := strconv.Atoi(args[i+1])
			z, errZ := strconv.Atoi(args[i+2])
			if errX != nil || errZ != nil {
				return nil, 0, 0, false, nil, fmt.Errorf("--chunk X Z must be integers")
			}
			if x < 0 || x > 31 || z < 0 || z > 31 {
				return nil, 0, 0, false, nil, fmt.Errorf("--chunk coordinates must be in 0..31")
			}
			chunkX, chunkZ, chunkSet = x, z, true
			i += 3
		case "--edit":
			if i+2 >= len(args) {
				return nil, 0, 0, false, nil, fmt.Errorf("--edit requires PATH and VALUE")
			}
			ops = append(ops, operation{Kind: "edit", Path: args[i+1], Value: args[i+2]})
			i += 3
		case "--set":
			if i+2 >= len(args) {
				return nil, 0, 0, false, nil, fmt.Errorf("--set requires PATH and VALUE")
			}
			ops = append(ops, operation{Kind: "set", Path: args[i+1], Value: args[i+2]})
			i += 3
		case "--delete":
			if i+1 >= len(args) {
				return nil, 0, 0, false, nil, fmt.Errorf("--delete requires PATH")
			}
			ops = append(ops, operation{Kind: "delete", Path: args[i+1]})
			i += 2
		default:
			remaining = append(remaining, args[i])
			i++
		}
	}
	return remaining, chunkX, chunkZ, chunkSet, ops, nil
}

func run(cmd *cobra.Command, file string, chunkX, chunkZ int, chunkSet bool, ops []operation) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to read %q", file), err).Err()
	}

	dumpPath, _ := cmd.Flags().GetString("dump")
	outputPath, _ := cmd.Flags().GetString("output")
	inPlace, _ := cmd.Flags().GetBool("in-place")
	var backupSuffix string
	backupRequested := cmd.Flags().Changed("backup")
	if backupRequested {
		backupSuffix, _ = cmd.Flags().GetString("backup")
	}

	if strings.EqualFold(filepath.Ext(file), ".mca") {
		return runRegion(file, data, chunkX, chunkZ, chunkSet, ops, dumpPath, outputPath, inPlace, backupRequested, backupSuffix)
	}
	return runStandalone(file, data, ops, dumpPath, outputPath, inPlace, backupRequested, backupSuffix)
}

func runStandalone(file string, data []byte, ops []operation, dumpPath, outputPath string, inPlace, backupRequested bool, backupSuffix string) error {
	framing := codec.Classify(data)
	raw, err := codec.Inflate(data, framing)
	if err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to decompress %q", file), err).Err()
	}

	root, trailing, res := builder.Parse(raw)
	if !res.IsOK() {
		return statusError("parse", file, res)
	}
	if trailing < len(raw) {
		log.Printf("warning: %d trailing byte(s) after the root tag in %q", len(raw)-trailing, file)
	}

	if err := applyOps(root, ops); err != nil {
		return err
	}

	if dumpPath != "" {
		if err := writeDump(dumpPath, root); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	if res := serializer.Write(&out, root); !res.IsOK() {
		return statusError("serialise", file, res)
	}
	compressed, err := codec.Deflate(out.Bytes(), codec.Gzip)
	if err != nil {
		return nbterr.Wrap(nbterr.Memory, "failed to compress output", err).Err()
	}

	target := outputPath
	switch {
	case inPlace:
		target = file
	case target == "":
		target = "modified_output.dat"
	}
	return persist(file, target, inPlace, backupRequested, backupSuffix, compressed)
}

func runRegion(file string, data []byte, chunkX, chunkZ int, chunkSet bool, ops []operation, dumpPath, outputPath string, inPlace, backupRequested bool, backupSuffix string) error {
	reg, res := region.Read(data)
	if !res.IsOK() {
		return statusError("parse region", file, res)
	}

	x, z := chunkX, chunkZ
	if !chunkSet {
		var ok bool
		x, z, ok = reg.FirstPresent()
		if !ok {
			return fmt.Errorf("%q has no populated chunks", file)
		}
	}
	slot, ok := reg.Get(x, z)
	if !ok {
		return fmt.Errorf("chunk (%d, %d) is not present in %q", x, z, file)
	}

	raw, err := slot.Decompress()
	if err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to decompress chunk (%d, %d)", x, z), err).Err()
	}

	root, trailing, res := builder.Parse(raw)
	if !res.IsOK() {
		return statusError("parse", file, res)
	}
	if trailing < len(raw) {
		log.Printf("warning: %d trailing byte(s) after the root tag in chunk (%d, %d)", len(raw)-trailing, x, z)
	}

	if err := applyOps(root, ops); err != nil {
		return err
	}

	if dumpPath != "" {
		if err := writeDump(dumpPath, root); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	if res := serializer.Write(&out, root); !res.IsOK() {
		return statusError("serialise", file, res)
	}
	if err := slot.SetDecompressed(out.Bytes(), slot.Compression); err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to recompress chunk (%d, %d)", x, z), err).Err()
	}
	slot.Timestamp = uint32(time.Now().Unix())
	reg.Slots[region.Index(x, z)] = *slot

	rebuilt, res := region.Write(reg)
	if !res.IsOK() {
		return statusError("write region", file, res)
	}

	target := outputPath
	switch {
	case inPlace:
		target = file
	case target == "":
		target = "modified_output.mca"
	}
	return persist(file, target, inPlace, backupRequested, backupSuffix, rebuilt)
}

// applyOps runs every --edit/--set/--delete in command-line order,
// stopping at the first failure per the driver's error-reporting
// contract (spec §7).
func applyOps(root *tag.Tag, ops []operation) error {
	for _, op := range ops {
		var res nbterr.Result
		switch op.Kind {
		case "edit":
			res = mutator.Edit(root, op.Path, op.Value)
		case "set":
			res = mutator.SetOrCreate(root, op.Path, op.Value)
		case "delete":
			res = mutator.Delete(root, op.Path)
		}
		if !res.IsOK() {
			return statusError(op.Kind, op.Path, res)
		}
	}
	return nil
}

func statusError(opName, path string, res nbterr.Result) error {
	return fmt.Errorf("Failed to %s path '%s': %s (%s)", opName, path, res.Detail, res.Status)
}

func persist(inputFile, target string, inPlace, backupRequested bool, backupSuffix string, data []byte) error {
	if inPlace && backupRequested {
		suffix := backupSuffix
		if suffix == "" {
			suffix = ".bak"
		}
		original, err := os.ReadFile(inputFile)
		if err != nil {
			return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to read %q for backup", inputFile), err).Err()
		}
		if err := atomicWrite(inputFile+suffix, original); err != nil {
			return nbterr.Wrap(nbterr.Memory, "failed to write backup", err).Err()
		}
	}
	if err := atomicWrite(target, data); err != nil {
		return nbterr.Wrap(nbterr.Memory, fmt.Sprintf("failed to write %q", target), err).Err()
	}
	return nil
}

// atomicWrite writes data to a temporary file in target's directory then
// renames it into place (spec §7: "writers never overwrite the target
// until the serialisation completes").
func atomicWrite(target string, data []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".nbtedit-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
