package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unsafe"
)

// Layout is the byte size and alignment of a WGSL type in host-shareable memory.
type Layout struct {
	Size  uint64
	Align uint64
}

// primitiveLayouts holds the WGSL scalar, vector and matrix types the engine's shaders use.
var primitiveLayouts = map[string]Layout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"bool":        {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2<u32>":   {8, 8},
	"vec3<f32>":   {12, 16},
	"vec3<u32>":   {12, 16},
	"vec3<i32>":   {12, 16},
	"vec4<f32>":   {16, 16},
	"vec4<u32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"atomic<u32>": {4, 4},
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	attributeRegex   = regexp.MustCompile(`@\w+(\([^)]*\))?`)
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)
)

type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// Expectation pairs a WGSL struct name with the size of the host type uploaded into it.
type Expectation struct {
	Struct string
	Size   uint64
}

// Expect builds an Expectation from the host type T.
func Expect[T any](wgslStruct string) Expectation {
	var v T
	return Expectation{Struct: wgslStruct, Size: uint64(unsafe.Sizeof(v))}
}

// StructLayouts computes the layout of every struct declared in source. Structs whose
// fields cannot be resolved are left out.
func StructLayouts(source string) map[string]Layout {
	structs := parseStructs(lineCommentRegex.ReplaceAllString(source, ""))
	resolved := make(map[string]Layout, len(structs))
	remaining := structs
	for len(remaining) > 0 {
		next := remaining[:0:0]
		for _, ps := range remaining {
			if l, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// Verify checks that every expected struct exists in source with the expected size.
//
// Parameters:
//   - source: expanded WGSL source
//   - expect: host-side sizes to match
//
// Returns:
//   - error: naming every missing or mismatched struct
func Verify(source string, expect ...Expectation) error {
	layouts := StructLayouts(source)
	var problems []string
	for _, e := range expect {
		l, ok := layouts[e.Struct]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("struct %s not found", e.Struct))
		case l.Size != e.Size:
			problems = append(problems, fmt.Sprintf("struct %s is %d bytes, host type is %d", e.Struct, l.Size, e.Size))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("shader layout: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Prepare expands annotations in source and verifies the host layouts against the result.
func Prepare(source string, expect ...Expectation) (string, error) {
	out, err := NewPreProcessor().Process(source)
	if err != nil {
		return "", err
	}
	if err := Verify(out, expect...); err != nil {
		return "", err
	}
	return out, nil
}

func parseStructs(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	out := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		ps := parsedStruct{name: m[1]}
		for _, decl := range splitAtTopLevelCommas(m[2]) {
			builtin := strings.Contains(decl, "@builtin")
			decl = strings.TrimSpace(attributeRegex.ReplaceAllString(decl, ""))
			name, typ, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			ps.fields = append(ps.fields, parsedField{
				name:      strings.TrimSpace(name),
				typeName:  strings.ReplaceAll(strings.TrimSpace(typ), " ", ""),
				isBuiltin: builtin,
			})
		}
		out = append(out, ps)
	}
	return out
}

func structLayout(ps parsedStruct, known map[string]Layout) (Layout, bool) {
	var offset, align uint64 = 0, 1
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		l, ok := typeLayout(f.typeName, known)
		if !ok {
			return Layout{}, false
		}
		offset = roundUpAlign(l.Align, offset) + l.Size
		align = max(align, l.Align)
	}
	return Layout{Size: roundUpAlign(align, offset), Align: align}, true
}

// typeLayout resolves primitives, known structs and fixed-size arrays. Runtime-sized arrays
// report one element stride.
func typeLayout(typeName string, known map[string]Layout) (Layout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return Layout{}, false
	}
	inner = strings.TrimSuffix(inner, ">")
	elemName, countStr, fixed := strings.Cut(inner, ",")
	elem, ok := typeLayout(elemName, known)
	if !ok {
		return Layout{}, false
	}
	stride := roundUpAlign(elem.Align, elem.Size)
	if !fixed {
		return Layout{Size: stride, Align: elem.Align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSuffix(countStr, "u"), 10, 64)
	if err != nil {
		return Layout{}, false
	}
	return Layout{Size: count * stride, Align: elem.Align}, true
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// splitAtTopLevelCommas splits a struct body on commas outside angle brackets.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}
