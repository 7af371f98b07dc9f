package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Inspect builds the configured scene and its acceleration structures and prints their statistics.
func Inspect(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, dir, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	asm, err := scene.Build(context.Background(), cfg.Scene, scene.WithBaseDir(dir))
	if err != nil {
		return err
	}
	defer asm.Store.Release()

	policy, err := accel.ParsePolicy(cfg.Renderer.TLASPolicy)
	if err != nil {
		return err
	}
	blas := accel.NewBLASSet(accel.WithBuildWorkers(cfg.Renderer.Workers))
	defer blas.Release()
	if err := blas.EnsureAll(asm.Store.Meshes()); err != nil {
		return err
	}
	tlas := accel.NewTLAS(blas, accel.WithPolicy(policy))
	defer tlas.Release()
	if err := tlas.Rebuild(asm.Table.Snapshot()); err != nil {
		return err
	}

	instances := make(map[string]int)
	for _, p := range asm.Placements {
		if m, ok := asm.Store.Get(p.Mesh); ok {
			instances[m.Name]++
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mesh", "Vertices", "Triangles", "Materials", "Instances", "BVH nodes", "Leaves", "Depth", "Max leaf", "Build time"})
	var tris, verts int
	for _, rec := range blas.Records() {
		st := rec.BVH.Stats()
		verts += len(rec.Mesh.Vertices)
		tris += rec.Mesh.TriangleCount()
		table.Append([]string{
			rec.Mesh.Name,
			fmt.Sprintf("%d", len(rec.Mesh.Vertices)),
			fmt.Sprintf("%d", rec.Mesh.TriangleCount()),
			fmt.Sprintf("%d", len(rec.Mesh.Materials)),
			fmt.Sprintf("%d", instances[rec.Mesh.Name]),
			fmt.Sprintf("%d", st.Nodes),
			fmt.Sprintf("%d", st.Leaves),
			fmt.Sprintf("%d", st.MaxDepth),
			fmt.Sprintf("%d", st.MaxLeaf),
			rec.BuiltAt.Format("15:04:05.000"),
		})
	}
	top := tlas.Nodes()
	st := top.Stats()
	table.SetFooter([]string{
		"TLAS",
		fmt.Sprintf("%d", verts),
		fmt.Sprintf("%d", tris),
		"",
		fmt.Sprintf("%d", len(tlas.Instances())),
		fmt.Sprintf("%d", st.Nodes),
		fmt.Sprintf("%d", st.Leaves),
		fmt.Sprintf("%d", st.MaxDepth),
		fmt.Sprintf("%d", st.MaxLeaf),
		tlas.Policy().String(),
	})
	table.Render()
	logger.Noticef("scene %q\n%s", asm.Name, buf.String())
	return nil
}
