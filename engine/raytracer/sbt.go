package raytracer

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
)

// GroupKind is a shader binding table region.
type GroupKind uint32

const (
	GroupRayGen GroupKind = iota
	GroupMiss
	GroupHit
)

func (k GroupKind) String() string {
	switch k {
	case GroupRayGen:
		return "raygen"
	case GroupMiss:
		return "miss"
	}
	return "hit"
}

// ShaderID names a shading routine. The WGSL traversal switches on the same values.
type ShaderID uint32

const (
	ShaderRayGen ShaderID = iota + 1
	ShaderMissBackground
	ShaderMissShadow
	ShaderHitPhong
	ShaderHitEmissive
	ShaderHitMirror
)

// Miss record indices.
const (
	MissPrimary = 0
	MissShadow  = 1
)

const (
	// HandleSize is the size of a packed shader group handle.
	HandleSize = 16
	// RecordAlignment is the alignment of every record.
	RecordAlignment = 32
)

// Record is one shader group entry.
type Record struct {
	Kind   GroupKind
	Index  int
	Shader ShaderID
}

// DefaultHitGroups is one hit group per material class: phong, emissive, mirror.
func DefaultHitGroups() []ShaderID {
	return []ShaderID{ShaderHitPhong, ShaderHitEmissive, ShaderHitMirror}
}

// ShaderBindingTable holds the ray-gen, miss and hit group records at a fixed stride.
// It is built once; Rebuild replaces it only when the hit groups change.
type ShaderBindingTable struct {
	mu      sync.RWMutex
	hit     []ShaderID
	records []Record
	data    []byte
	stride  int
	built   bool
	version int
}

// NewShaderBindingTable creates an unbuilt table with the given hit groups.
//
// Parameters:
//   - hitGroups: shading routine per hit group; nil selects DefaultHitGroups
//
// Returns:
//   - *ShaderBindingTable: the table; queries fail until Build
func NewShaderBindingTable(hitGroups []ShaderID) *ShaderBindingTable {
	if len(hitGroups) == 0 {
		hitGroups = DefaultHitGroups()
	}
	return &ShaderBindingTable{hit: slices.Clone(hitGroups)}
}

// Build lays out the records and packs them. Calling Build on a built table is a no-op.
func (s *ShaderBindingTable) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return nil
	}
	return s.build()
}

func (s *ShaderBindingTable) build() error {
	for _, id := range s.hit {
		if id < ShaderHitPhong || id > ShaderHitMirror {
			return fmt.Errorf("build shader binding table: %d is not a hit shader", id)
		}
	}
	s.stride = alignUp(HandleSize, RecordAlignment)
	s.records = s.records[:0]
	s.records = append(s.records,
		Record{Kind: GroupRayGen, Index: 0, Shader: ShaderRayGen},
		Record{Kind: GroupMiss, Index: MissPrimary, Shader: ShaderMissBackground},
		Record{Kind: GroupMiss, Index: MissShadow, Shader: ShaderMissShadow},
	)
	for i, id := range s.hit {
		s.records = append(s.records, Record{Kind: GroupHit, Index: i, Shader: id})
	}

	s.data = make([]byte, len(s.records)*s.stride)
	for i, r := range s.records {
		o := i * s.stride
		binary.LittleEndian.PutUint32(s.data[o:], uint32(r.Shader))
		binary.LittleEndian.PutUint32(s.data[o+4:], uint32(r.Kind))
		binary.LittleEndian.PutUint32(s.data[o+8:], uint32(r.Index))
	}
	s.built = true
	s.version++
	return nil
}

// Rebuild replaces the hit groups and rebuilds when they differ from the current ones.
//
// Returns:
//   - bool: whether the table was rebuilt
//   - error: when a hit group is not a hit shader
func (s *ShaderBindingTable) Rebuild(hitGroups []ShaderID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built && slices.Equal(s.hit, hitGroups) {
		return false, nil
	}
	s.hit = slices.Clone(hitGroups)
	s.built = false
	return true, s.build()
}

// Record returns the record of a group, or a NotBuiltError before Build.
func (s *ShaderBindingTable) Record(kind GroupKind, index int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return Record{}, &rterr.NotBuiltError{Resource: "shader binding table", Key: fmt.Sprintf("%s %d", kind, index)}
	}
	for _, r := range s.records {
		if r.Kind == kind && r.Index == index {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("shader binding table has no %s record %d", kind, index)
}

// HitGroupFor selects the hit group of a material: emissive materials, then mirrors (illum 3),
// then phong. Falls back to group 0 when the class has no group.
func (s *ShaderBindingTable) HitGroupFor(m *geometry.Material) int {
	want := ShaderHitPhong
	switch {
	case m.Emission.Len() > 0:
		want = ShaderHitEmissive
	case m.Illum == 3:
		want = ShaderHitMirror
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := slices.Index(s.hit, want); i >= 0 {
		return i
	}
	return 0
}

// Built reports whether Build has run.
func (s *ShaderBindingTable) Built() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built
}

// Bytes returns the packed table for upload. It fails before Build.
func (s *ShaderBindingTable) Bytes() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return nil, &rterr.NotBuiltError{Resource: "shader binding table", Key: "bytes"}
	}
	return s.data, nil
}

// Stride returns the record stride in bytes.
func (s *ShaderBindingTable) Stride() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stride
}

// HitGroups returns a copy of the hit group shaders.
func (s *ShaderBindingTable) HitGroups() []ShaderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.hit)
}

// Version increments on every build.
func (s *ShaderBindingTable) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Release drops the packed records.
func (s *ShaderBindingTable) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.data = nil
	s.built = false
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
