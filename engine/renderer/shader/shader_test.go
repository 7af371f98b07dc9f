package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotated = `// header
//@oxy:include material

//@oxy:group 1 4 storage_read materials array<material>
fn main() {}
`

func TestProcessExpandsAnnotations(t *testing.T) {
	p := NewPreProcessor()
	out, err := p.Process(annotated)
	require.NoError(t, err)

	assert.Contains(t, out, "struct Material {")
	assert.Contains(t, out, "@group(1) @binding(4) var<storage, read> materials: array<Material>;")
	assert.NotContains(t, out, "@oxy:")

	decls := p.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 1, *decls[0].Group)
	assert.Equal(t, 4, *decls[0].Binding)
	assert.Equal(t, AnnotationArg("materials"), decls[0].Args[1])
}

func TestProcessRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":          "//@oxy:",
		"unknown type":   "//@oxy:bogus",
		"include arity":  "//@oxy:include",
		"unknown struct": "//@oxy:include camera",
		"group arity":    "//@oxy:group 0 1 storage_read materials",
		"bad group":      "//@oxy:group x 1 storage_read materials material",
		"address space":  "//@oxy:group 0 1 private materials material",
		"array element":  "//@oxy:group 0 1 storage_read lights array<light>",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(src)
			assert.Error(t, err)
		})
	}
}

func TestProcessIgnoresNonComments(t *testing.T) {
	src := "let s = \"@oxy:include material\";"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestStructLayouts(t *testing.T) {
	src := `
struct Inner {
    a: vec3<f32>,
    b: u32,
}

// comment, with: a colon
struct Outer {
    m: mat4x4<f32>,
    n: mat3x3<f32>,
    inner: Inner,
    list: array<Inner, 3>,
    flag: u32,
}

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) @interpolate(flat) id: u32,
}
`
	layouts := StructLayouts(src)
	assert.Equal(t, Layout{Size: 16, Align: 16}, layouts["Inner"])
	// 64 + 48 + 16 + 48 + 4 rounded to 16
	assert.Equal(t, Layout{Size: 192, Align: 16}, layouts["Outer"])
	assert.Equal(t, Layout{Size: 4, Align: 4}, layouts["VertexOut"])
}

func TestPrepareVerifiesHostSizes(t *testing.T) {
	out, err := Prepare(annotated, Expect[material.GPUMaterial]("Material"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "// header"))

	_, err = Prepare(annotated, Expectation{Struct: "Material", Size: 48})
	assert.ErrorContains(t, err, "Material is 64 bytes")

	_, err = Prepare(annotated, Expectation{Struct: "Camera", Size: 96})
	assert.ErrorContains(t, err, "Camera not found")
}
