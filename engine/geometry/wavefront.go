package geometry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// resolver opens files referenced from inside an OBJ file (mtllib).
type resolver interface {
	Open(from, name string) (io.ReadCloser, error)
}

type osResolver struct{}

func (osResolver) Open(from, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(filepath.Dir(from), name))
}

type parsedMesh struct {
	name            string
	vertices        []Vertex
	indices         []uint32
	materials       []Material
	materialIndices []int32
}

type vertexKey struct {
	v, vt, vn int
}

type wavefrontReader struct {
	path     string
	resolver resolver

	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2

	matIndex  map[string]int32
	curMat    int32
	vertexMap map[vertexKey]uint32
	out       *parsedMesh
}

// readWavefront parses OBJ geometry from r. Polygons are triangulated as fans and
// vertices are de-duplicated by their (position, uv, normal) index triple.
func readWavefront(r io.Reader, path string, res resolver) (*parsedMesh, error) {
	w := &wavefrontReader{
		path:      path,
		resolver:  res,
		matIndex:  make(map[string]int32),
		curMat:    -1,
		vertexMap: make(map[vertexKey]uint32),
		out: &parsedMesh{
			name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		},
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		if err := w.line(tokens); err != nil {
			return nil, fmt.Errorf("[%s:%d] %w", path, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, m := range w.out.materialIndices {
		if m < 0 {
			w.out.materialIndices[i] = w.defaultMaterial()
		}
	}
	return w.out, nil
}

func (w *wavefrontReader) line(tokens []string) error {
	switch tokens[0] {
	case "v":
		v, err := parseFloats(tokens[1:], 3)
		if err != nil {
			return err
		}
		w.positions = append(w.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(tokens[1:], 3)
		if err != nil {
			return err
		}
		w.normals = append(w.normals, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(tokens[1:], 2)
		if err != nil {
			return err
		}
		w.uvs = append(w.uvs, mgl32.Vec2{v[0], v[1]})
	case "f":
		return w.face(tokens[1:])
	case "mtllib":
		for _, name := range tokens[1:] {
			if err := w.materialLibrary(name); err != nil {
				logger.Warningf("%s: skipping material library %s: %v", w.path, name, err)
			}
		}
	case "usemtl":
		if len(tokens) != 2 {
			return fmt.Errorf("usemtl expects 1 argument; got %d", len(tokens)-1)
		}
		idx, ok := w.matIndex[tokens[1]]
		if !ok {
			logger.Warningf("%s: undefined material %q, using default", w.path, tokens[1])
			idx = w.defaultMaterial()
		}
		w.curMat = idx
	case "o", "g", "s":
		// grouping and smoothing groups do not affect a single-mesh import
	}
	return nil
}

func (w *wavefrontReader) defaultMaterial() int32 {
	if idx, ok := w.matIndex[""]; ok {
		return idx
	}
	w.out.materials = append(w.out.materials, DefaultMaterial())
	idx := int32(len(w.out.materials) - 1)
	w.matIndex[""] = idx
	return idx
}

func (w *wavefrontReader) face(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("face needs at least 3 vertices; got %d", len(tokens))
	}
	corners := make([]uint32, len(tokens))
	for i, tok := range tokens {
		idx, err := w.corner(tok)
		if err != nil {
			return err
		}
		corners[i] = idx
	}
	for i := 1; i+1 < len(corners); i++ {
		w.out.indices = append(w.out.indices, corners[0], corners[i], corners[i+1])
		w.out.materialIndices = append(w.out.materialIndices, w.curMat)
	}
	return nil
}

// corner resolves one "v", "v/vt", "v//vn" or "v/vt/vn" reference to a de-duplicated vertex index.
func (w *wavefrontReader) corner(tok string) (uint32, error) {
	parts := strings.Split(tok, "/")
	key := vertexKey{v: -1, vt: -1, vn: -1}

	var err error
	if key.v, err = resolveIndex(parts[0], len(w.positions)); err != nil {
		return 0, fmt.Errorf("vertex %q: %w", tok, err)
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.vt, err = resolveIndex(parts[1], len(w.uvs)); err != nil {
			return 0, fmt.Errorf("texcoord %q: %w", tok, err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.vn, err = resolveIndex(parts[2], len(w.normals)); err != nil {
			return 0, fmt.Errorf("normal %q: %w", tok, err)
		}
	}

	if idx, ok := w.vertexMap[key]; ok {
		return idx, nil
	}

	v := Vertex{Position: w.positions[key.v]}
	if key.vt >= 0 {
		v.TexCoord = w.uvs[key.vt]
	}
	if key.vn >= 0 {
		v.Normal = w.normals[key.vn]
	}
	idx := uint32(len(w.out.vertices))
	w.out.vertices = append(w.out.vertices, v)
	w.vertexMap[key] = idx
	return idx, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index into a 0-based one.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	default:
		return 0, fmt.Errorf("index %d out of range (%d defined)", n, count)
	}
}

func parseFloats(tokens []string, want int) ([]float32, error) {
	if len(tokens) < want {
		return nil, fmt.Errorf("expected %d values; got %d", want, len(tokens))
	}
	out := make([]float32, want)
	for i := 0; i < want; i++ {
		f, err := strconv.ParseFloat(tokens[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (w *wavefrontReader) materialLibrary(name string) error {
	rc, err := w.resolver.Open(w.path, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	var cur *Material
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		if tokens[0] == "newmtl" {
			if len(tokens) != 2 {
				return fmt.Errorf("newmtl expects 1 argument; got %d", len(tokens)-1)
			}
			m := DefaultMaterial()
			m.Name = tokens[1]
			w.out.materials = append(w.out.materials, m)
			w.matIndex[m.Name] = int32(len(w.out.materials) - 1)
			cur = &w.out.materials[len(w.out.materials)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if err := applyMaterialField(cur, tokens); err != nil {
			return fmt.Errorf("material %s: %w", cur.Name, err)
		}
	}
	return scanner.Err()
}

func applyMaterialField(m *Material, tokens []string) error {
	vec := func() (mgl32.Vec3, error) {
		v, err := parseFloats(tokens[1:], 3)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		return mgl32.Vec3{v[0], v[1], v[2]}, nil
	}
	scalar := func() (float32, error) {
		v, err := parseFloats(tokens[1:], 1)
		if err != nil {
			return 0, err
		}
		return v[0], nil
	}

	var err error
	switch tokens[0] {
	case "Ka":
		m.Ambient, err = vec()
	case "Kd":
		m.Diffuse, err = vec()
	case "Ks":
		m.Specular, err = vec()
	case "Ke":
		m.Emission, err = vec()
	case "Ns":
		m.Shininess, err = scalar()
	case "Ni":
		m.IOR, err = scalar()
	case "d":
		m.Dissolve, err = scalar()
	case "Tr":
		var tr float32
		tr, err = scalar()
		m.Dissolve = 1 - tr
	case "illum":
		var f float32
		f, err = scalar()
		m.Illum = int32(f)
	}
	return err
}
