package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sketch"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms sketch Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: default-spec -> default_spec
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a 2D sketch point.
type sexpPoint struct {
	p geom.Point2
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g)", p.p.X, p.p.Y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpSegmentRef is returned by segment so scripts can print or collect ids.
type sexpSegmentRef struct {
	id string
}

func (s *sexpSegmentRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(segment %q)", s.id)
}
func (s *sexpSegmentRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as a set flag.
				result.kw[name] = &zygo.SexpBool{Val: true}
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp. Keywords are accepted too, so
// both :SMS-25 style and "SMS-25" style spec names work.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return strings.TrimPrefix(str.S, kwPrefix), nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. Any non-boolean value other than nil is true.
func toBool(s zygo.Sexp) bool {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val
	case *zygo.SexpSentinel:
		return v != zygo.SexpNull
	}
	return true
}

// toPoint extracts a 2D point from a sexpPoint or a two-element list/array.
func toPoint(s zygo.Sexp) (geom.Point2, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.p, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 2 {
		return geom.Point2{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
	}
	x, err := toFloat64(items[0])
	if err != nil {
		return geom.Point2{}, fmt.Errorf("point x: %w", err)
	}
	y, err := toFloat64(items[1])
	if err != nil {
		return geom.Point2{}, fmt.Errorf("point y: %w", err)
	}
	return geom.Point2{X: x, Y: y}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Sketch accumulation
// ---------------------------------------------------------------------------

// sketchBuilder collects segments while a script runs.
type sketchBuilder struct {
	sketch      *sketch.Sketch
	defaultSpec string
	ids         map[string]bool

	// pending is the id of the segment call in progress. It stays set when
	// the call fails so the error can be located in the source.
	pending       string
	pendingRepeat bool
}

func newSketchBuilder() *sketchBuilder {
	return &sketchBuilder{sketch: &sketch.Sketch{}, ids: make(map[string]bool)}
}

// segmentFromArgs parses (NAME "id" FROM TO [:length L] [:spec S] [:construction B]).
func (b *sketchBuilder) segmentFromArgs(fn string, args []zygo.Sexp, allowLength bool) (sketch.Segment, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 3 {
		return sketch.Segment{}, fmt.Errorf("%s requires an id and two points, got %d positional arguments", fn, len(pa.positional))
	}

	id, err := toString(pa.positional[0])
	if err != nil {
		return sketch.Segment{}, fmt.Errorf("%s: id: %w", fn, err)
	}
	b.pending, b.pendingRepeat = id, b.ids[id]
	if b.ids[id] {
		return sketch.Segment{}, fmt.Errorf("%s: duplicate segment id %q", fn, id)
	}
	from, err := toPoint(pa.positional[1])
	if err != nil {
		return sketch.Segment{}, fmt.Errorf("%s %s: from: %w", fn, id, err)
	}
	to, err := toPoint(pa.positional[2])
	if err != nil {
		return sketch.Segment{}, fmt.Errorf("%s %s: to: %w", fn, id, err)
	}

	seg := sketch.Segment{ID: id, Start: from, End: to, Spec: b.defaultSpec}

	if v, ok := pa.kw["length"]; ok {
		if !allowLength {
			return sketch.Segment{}, fmt.Errorf("%s %s: a shortcut cannot carry a length", fn, id)
		}
		l, err := toFloat64(v)
		if err != nil {
			return sketch.Segment{}, fmt.Errorf("%s %s: length: %w", fn, id, err)
		}
		seg.Length = &l
	}
	if v, ok := pa.kw["spec"]; ok {
		s, err := toString(v)
		if err != nil {
			return sketch.Segment{}, fmt.Errorf("%s %s: spec: %w", fn, id, err)
		}
		seg.Spec = s
	}
	if v, ok := pa.kw["construction"]; ok {
		seg.Construction = toBool(v)
	}
	if seg.Spec == "" {
		return sketch.Segment{}, fmt.Errorf("%s %s: no :spec given and no default-spec set", fn, id)
	}

	b.ids[id] = true
	b.pending = ""
	return seg, nil
}

// locate returns the line of the failed segment call in source, or 0 when
// its id does not appear literally. A repeated id points at its second
// occurrence.
func (b *sketchBuilder) locate(source string) int {
	if b.pending == "" {
		return 0
	}
	quoted := strconv.Quote(b.pending)
	skip := 0
	if b.pendingRepeat {
		skip = 1
	}
	for i, line := range strings.Split(source, "\n") {
		n := strings.Count(line, quoted)
		if n > skip {
			return i + 1
		}
		skip -= n
	}
	return 0
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the sketch DSL builtins into a zygomys
// environment. They append to the builder while the script runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *sketchBuilder) {

	// -----------------------------------------------------------------------
	// (pt 86.6 50)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: y: %w", err)
		}
		return &sexpPoint{p: geom.Point2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (iso (pt 0 0) 30 100): the point 100 units along bearing 30° from p.
	// -----------------------------------------------------------------------
	env.AddFunction("iso", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("iso requires a point, a bearing and a length")
		}
		p, err := toPoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("iso: %w", err)
		}
		bearing, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("iso: bearing: %w", err)
		}
		length, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("iso: length: %w", err)
		}
		q := geom.IsoStep(p, bearing, length)
		// Keep sketch coordinates stable across chained iso calls.
		q.X = math.Round(q.X*1e4) / 1e4
		q.Y = math.Round(q.Y*1e4) / 1e4
		return &sexpPoint{p: q}, nil
	})

	// -----------------------------------------------------------------------
	// (default-spec "SMS-25")
	// -----------------------------------------------------------------------
	env.AddFunction("default_spec", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("default-spec requires exactly 1 argument")
		}
		s, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("default-spec: %w", err)
		}
		b.defaultSpec = s
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (origin (pt 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("origin", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("origin requires exactly 1 point")
		}
		p, err := toPoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("origin: %w", err)
		}
		b.sketch.Origin = &p
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (segment "l1" (pt 0 0) (pt 86.6 50) :length 100 :spec "SMS-25")
	// -----------------------------------------------------------------------
	env.AddFunction("segment", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		seg, err := b.segmentFromArgs("segment", args, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		b.sketch.Add(seg)
		return &sexpSegmentRef{id: seg.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (shortcut "l5" (pt ..) (pt ..)): an undimensioned segment whose length
	// follows from already placed points.
	// -----------------------------------------------------------------------
	env.AddFunction("shortcut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		seg, err := b.segmentFromArgs("shortcut", args, false)
		if err != nil {
			return zygo.SexpNull, err
		}
		b.sketch.Add(seg)
		return &sexpSegmentRef{id: seg.ID}, nil
	})
}
