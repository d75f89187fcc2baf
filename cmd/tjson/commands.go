package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/tjson/stream"
	"github.com/Neumenon/tjson/tjson"
	"github.com/Neumenon/tjson/transcode"
)

// ============================================================
// Input
// ============================================================

// readInput returns the bytes of the file named by args, or stdin.
func readInput(e *env, args []string) ([]byte, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("unexpected argument: %s", args[1])
	}
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(e.stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return data, nil
}

// readEnvelopes decodes every top-level envelope in the input. JSONC
// comments and trailing commas are stripped first.
func readEnvelopes(e *env, args []string) ([]*tjson.Value, error) {
	data, err := readInput(e, args)
	if err != nil {
		return nil, err
	}
	dec := tjson.NewDecoderWithOpts(bytes.NewReader(jsonc.ToJSON(data)), e.cfg.DecodeOptions(e.logger))
	var values []*tjson.Value
	for {
		v, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("envelope %d: %w", len(values), err)
		}
		values = append(values, v)
	}
}

// ============================================================
// decode
// ============================================================

func decodeFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: tree, json or yaml")
}

func runDecode(e *env, _ *pflag.FlagSet, args []string) error {
	values, err := readEnvelopes(e, args)
	if err != nil {
		return err
	}
	for i, v := range values {
		switch e.cfg.Format {
		case "tree":
			if i > 0 {
				fmt.Fprintln(e.stdout)
			}
			printTree(e.stdout, v, "", "")
		case "json":
			out, err := json.MarshalIndent(finiteNative(tjson.ToNative(v)), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "%s\n", out)
		case "yaml":
			if i > 0 {
				fmt.Fprintln(e.stdout, "---")
			}
			out, err := yaml.Marshal(tjson.ToNative(v))
			if err != nil {
				return err
			}
			e.stdout.Write(out)
		}
	}
	return nil
}

// printTree writes v as an indented outline, one value per line:
//
//	Map
//	  born: Integer 1964
//	  name: String "Keanu"
func printTree(w io.Writer, v *tjson.Value, indent, label string) {
	child := indent + "  "
	switch v.Kind() {
	case tjson.KindMap:
		fmt.Fprintf(w, "%s%sMap\n", indent, label)
		m, _ := v.AsMap()
		for _, k := range sortedKeys(m) {
			printTree(w, m[k], child, k+": ")
		}
	case tjson.KindList:
		fmt.Fprintf(w, "%s%sList\n", indent, label)
		items, _ := v.AsList()
		for i, item := range items {
			printTree(w, item, child, "["+strconv.Itoa(i)+"] ")
		}
	case tjson.KindNode:
		n, _ := v.AsNode()
		fmt.Fprintf(w, "%s%sNode %s%s\n", indent, label, n.ElementID, labelSuffix(n.Labels))
		for _, k := range sortedKeys(n.Properties) {
			printTree(w, n.Properties[k], child, k+": ")
		}
	case tjson.KindRelationship:
		r, _ := v.AsRelationship()
		fmt.Fprintf(w, "%s%sRelationship %s (%s)-[:%s]->(%s)\n", indent, label,
			r.ElementID, r.StartNodeElementID, r.Type, r.EndNodeElementID)
		for _, k := range sortedKeys(r.Properties) {
			printTree(w, r.Properties[k], child, k+": ")
		}
	case tjson.KindPath:
		p, _ := v.AsPath()
		fmt.Fprintf(w, "%s%sPath (%d nodes, connected=%t)\n", indent, label, len(p.Nodes), p.Connected())
		for i := 0; i < len(p.Nodes) || i < len(p.Relationships); i++ {
			if i < len(p.Nodes) && p.Nodes[i] != nil {
				printTree(w, tjson.NodeOf(*p.Nodes[i]), child, "")
			}
			if i < len(p.Relationships) && p.Relationships[i] != nil {
				printTree(w, tjson.RelationshipOf(*p.Relationships[i]), child, "")
			}
		}
	default:
		fmt.Fprintf(w, "%s%s%s %s\n", indent, label, v.Kind(), scalarText(v))
	}
}

func scalarText(v *tjson.Value) string {
	switch v.Kind() {
	case tjson.KindNull:
		return "null"
	case tjson.KindString:
		s, _ := v.AsStr()
		return strconv.Quote(s)
	case tjson.KindByteArray:
		b, _ := v.AsBytes()
		return fmt.Sprintf("%d bytes %x", len(b), b)
	}
	// Scalars and temporals print their canonical payload text.
	tree, err := tjson.ToTree(v)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprint(tree.(map[string]any)["_value"])
}

// finiteNative replaces the non-finite floats of a native projection,
// which JSON cannot hold, with their wire spellings.
func finiteNative(x any) any {
	switch n := x.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return scalarText(tjson.Float(n))
		}
	case []any:
		for i, e := range n {
			n[i] = finiteNative(e)
		}
	case map[string]any:
		for k, e := range n {
			n[k] = finiteNative(e)
		}
	case tjson.NativeNode:
		finiteNative(n.Properties)
	case tjson.NativeRelationship:
		finiteNative(n.Properties)
	case tjson.NativePath:
		for _, node := range n.Nodes {
			finiteNative(node.Properties)
		}
		for _, rel := range n.Relationships {
			finiteNative(rel.Properties)
		}
	}
	return x
}

func labelSuffix(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return " :" + strings.Join(labels, ":")
}

func sortedKeys(m map[string]*tjson.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================
// encode, fmt, fingerprint
// ============================================================

func runEncode(e *env, _ *pflag.FlagSet, args []string) error {
	data, err := readInput(e, args)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	enc := tjson.NewEncoderWithOpts(e.stdout, e.cfg.EncodeOptions())
	for n := 0; ; n++ {
		var native any
		if err := dec.Decode(&native); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("document %d: %w", n, err)
		}
		v, err := tjson.FromNativeWithOpts(native, e.cfg.EncodeOptions())
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}

func fmtFlags(fs *pflag.FlagSet, _ *Config) {
	fs.Bool("indent", false, "indent nested envelopes")
}

func runFmt(e *env, fs *pflag.FlagSet, args []string) error {
	values, err := readEnvelopes(e, args)
	if err != nil {
		return err
	}
	enc := tjson.NewEncoderWithOpts(e.stdout, e.cfg.EncodeOptions())
	if indent, _ := fs.GetBool("indent"); indent {
		enc.SetIndent("  ")
	}
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func runFingerprint(e *env, _ *pflag.FlagSet, args []string) error {
	values, err := readEnvelopes(e, args)
	if err != nil {
		return err
	}
	for _, v := range values {
		sum, err := tjson.FingerprintWithOpts(v, e.cfg.EncodeOptions())
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "blake3:%s\n", stream.SumToHex(sum))
	}
	return nil
}

// ============================================================
// to, from
// ============================================================

func encFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Encoding, "enc", cfg.Encoding, "codec: "+strings.Join(transcode.Names(), ", "))
}

func runTo(e *env, _ *pflag.FlagSet, args []string) error {
	codec, err := transcode.LookupWithOpts(e.cfg.Encoding, e.cfg.DecodeOptions(e.logger))
	if err != nil {
		return err
	}
	values, err := readEnvelopes(e, args)
	if err != nil {
		return err
	}
	if len(values) != 1 && codec.Name() != "json" {
		return fmt.Errorf("%s output holds exactly one value, input has %d (use frames write)", codec.Name(), len(values))
	}
	for _, v := range values {
		out, err := codec.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := e.stdout.Write(out); err != nil {
			return err
		}
		if codec.Name() == "json" {
			fmt.Fprintln(e.stdout)
		}
	}
	return nil
}

func runFrom(e *env, _ *pflag.FlagSet, args []string) error {
	codec, err := transcode.LookupWithOpts(e.cfg.Encoding, e.cfg.DecodeOptions(e.logger))
	if err != nil {
		return err
	}
	data, err := readInput(e, args)
	if err != nil {
		return err
	}
	if codec.Name() == "json" {
		data = jsonc.ToJSON(data)
	}
	v, err := codec.Unmarshal(data)
	if err != nil {
		return err
	}
	return tjson.NewEncoderWithOpts(e.stdout, e.cfg.EncodeOptions()).Encode(v)
}

// ============================================================
// frames
// ============================================================

func frameCommands() map[string]command {
	return map[string]command{
		"write": {flags: frameWriteFlags, run: runFramesWrite},
		"read":  {run: runFramesRead},
	}
}

func frameWriteFlags(fs *pflag.FlagSet, cfg *Config) {
	encFlags(fs, cfg)
	fs.BoolVar(&cfg.CRC, "crc", cfg.CRC, "add a CRC-32 to every frame")
	fs.BoolVar(&cfg.Sum, "sum", cfg.Sum, "add the BLAKE3 fingerprint of every value")
	fs.StringVar(&cfg.Compression, "compress", cfg.Compression, "payload compression: none, zstd, lz4")
	fs.Uint64("sid", 0, "stream id of the written frames")
}

func runFramesWrite(e *env, fs *pflag.FlagSet, args []string) error {
	codec, err := transcode.LookupWithOpts(e.cfg.Encoding, e.cfg.DecodeOptions(e.logger))
	if err != nil {
		return err
	}
	compression, err := stream.ParseCompression(e.cfg.Compression)
	if err != nil {
		return err
	}
	values, err := readEnvelopes(e, args)
	if err != nil {
		return err
	}
	sid, _ := fs.GetUint64("sid")

	opts := []stream.WriterOption{
		stream.WithCodec(codec),
		stream.WithCompression(compression),
		stream.WithSumOptions(e.cfg.EncodeOptions()),
	}
	if e.cfg.CRC {
		opts = append(opts, stream.WithCRC())
	}
	if e.cfg.Sum {
		opts = append(opts, stream.WithSum())
	}
	w := stream.NewWriter(e.stdout, opts...)

	var seq uint64
	for _, v := range values {
		if err := w.WriteValue(sid, seq, v); err != nil {
			return err
		}
		seq++
	}
	e.logger.Debug("frames written", "sid", sid, "values", len(values), "enc", codec.Name(), "compression", compression)
	return w.WriteEnd(sid, seq, int64(len(values)))
}

func runFramesRead(e *env, _ *pflag.FlagSet, args []string) error {
	data, err := readInput(e, args)
	if err != nil {
		return err
	}
	r := stream.NewReader(bytes.NewReader(data),
		stream.WithDecodeOptions(e.cfg.DecodeOptions(e.logger)),
		stream.WithLogger(e.logger),
	)

	h := stream.NewFrameHandler()
	h.Reader = r
	h.OnValue = func(sid, seq uint64, v *tjson.Value) error {
		out, err := tjson.MarshalWithOpts(v, e.cfg.EncodeOptions())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.stdout, "sid=%d seq=%d %s\n", sid, seq, out)
		return err
	}
	h.OnErr = func(sid, seq uint64, remote *stream.RemoteError) error {
		_, err := fmt.Fprintf(e.stdout, "sid=%d seq=%d %v\n", sid, seq, remote)
		return err
	}
	h.OnEnd = func(sid uint64, state stream.SIDState) error {
		_, err := fmt.Fprintf(e.stdout, "sid=%d end values=%d\n", sid, state.Values)
		return err
	}
	h.OnSeqGap = func(sid uint64, expected, got uint64) error {
		e.logger.Warn("sequence gap", "sid", sid, "expected", expected, "got", got)
		return nil
	}

	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.Handle(f); err != nil {
			return err
		}
	}
}
