package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

var logger = log.New("scene")

// Placement records where Build put one instance and which configured mesh it came from.
type Placement struct {
	Instance InstanceID
	Mesh     geometry.MeshID
	// Source is the index of the mesh entry in the configuration.
	Source int
	// Index is the instance's position within its mesh entry; the center instance is -1.
	Index    int
	World    mgl32.Mat4
	Track    config.Track
	Animated bool
}

// Assembly is a scene built from configuration: its geometry, its instances and where they were placed.
type Assembly struct {
	Name       string
	Store      *geometry.Store
	Table      *InstanceTable
	Meshes     []geometry.MeshID
	Placements []Placement
}

// builder holds Build options.
type builder struct {
	loadWorkers int
	baseDir     string
}

// Build loads every configured mesh and places its instances.
// OBJ files are read concurrently; meshes are inserted in configuration order so ids are stable.
//
// Parameters:
//   - ctx: cancels outstanding mesh loads
//   - cfg: the scene description
//   - options: functional options (load workers, base directory)
//
// Returns:
//   - *Assembly: the geometry store, the populated instance table and the placements
//   - error: the first mesh that failed to load or could not be placed
func Build(ctx context.Context, cfg config.Scene, options ...SceneBuilderOption) (*Assembly, error) {
	b := &builder{loadWorkers: runtime.NumCPU()}
	for _, opt := range options {
		opt(b)
	}

	meshes := make([]*geometry.Mesh, len(cfg.Meshes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.loadWorkers)
	for i, mc := range cfg.Meshes {
		if mc.Path == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := mc.Path
			if !filepath.IsAbs(path) && b.baseDir != "" {
				path = filepath.Join(b.baseDir, path)
			}
			m, err := geometry.ReadMesh(path, mc.BaseTransform())
			if err != nil {
				return fmt.Errorf("scene.meshes[%d] (%s): %w", i, mc.Name, err)
			}
			if mc.Material != nil && len(m.Materials) == 1 {
				m.Materials[0] = mc.GeometryMaterial()
			}
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := geometry.NewStore()
	asm := &Assembly{
		Name:   cfg.Name,
		Store:  store,
		Table:  NewInstanceTable(store),
		Meshes: make([]geometry.MeshID, len(cfg.Meshes)),
	}
	for i, mc := range cfg.Meshes {
		var (
			id  geometry.MeshID
			err error
		)
		if meshes[i] != nil {
			id, err = store.Insert(meshes[i])
		} else {
			id, err = store.AddPrimitive(mc.Primitive, mc.GeometryMaterial(), mc.BaseTransform())
		}
		if err != nil {
			return nil, fmt.Errorf("scene.meshes[%d] (%s): %w", i, mc.Name, err)
		}
		asm.Meshes[i] = id
		if err := asm.place(i, id, mc); err != nil {
			return nil, err
		}
	}

	logger.Infof("built scene %q: %d meshes, %d instances", cfg.Name, store.Len(), asm.Table.Len())
	return asm, nil
}

func (a *Assembly) place(source int, mesh geometry.MeshID, mc config.Mesh) error {
	worlds := Distribute(mc.Distribution, mc.Instances)
	animated := mc.Track.Animated()
	first := 0
	if mc.Distribution.Center {
		first = -1
	}
	for k, world := range worlds {
		index := k + first
		anim := animated && index >= 0
		id, err := a.Table.AddInstance(mesh, WithTransform(world), WithAnimated(anim))
		if err != nil {
			return fmt.Errorf("scene.meshes[%d] (%s): %w", source, mc.Name, err)
		}
		a.Placements = append(a.Placements, Placement{
			Instance: id,
			Mesh:     mesh,
			Source:   source,
			Index:    index,
			World:    world,
			Track:    mc.Track,
			Animated: anim,
		})
	}
	return nil
}

// Animated returns the placements tagged for the animation driver.
func (a *Assembly) Animated() []Placement {
	out := make([]Placement, 0, len(a.Placements))
	for _, p := range a.Placements {
		if p.Animated {
			out = append(out, p)
		}
	}
	return out
}
