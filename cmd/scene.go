package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/rtaccel/accel"
	"github.com/achilleasa/rtaccel/asset"
	"github.com/achilleasa/rtaccel/asset/reader"
	"github.com/achilleasa/rtaccel/asset/writer"
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/urfave/cli"
)

// Load a scene description applying any build option overrides specified
// on the command line.
func loadScene(ctx *cli.Context, sceneFile string) (*reader.LoadedScene, error) {
	res, err := asset.NewResource(sceneFile, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	desc, err := reader.ParseSceneDescription(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sceneFile, err)
	}

	if strategy := ctx.String("blas-strategy"); strategy != "" {
		desc.BLAS.Strategy = strategy
	}
	if strategy := ctx.String("tlas-strategy"); strategy != "" {
		desc.TLAS.Strategy = strategy
	}
	if leafSize := ctx.Int("leaf-size"); leafSize > 0 {
		desc.BLAS.LeafSize = leafSize
	}

	return desc.Load(context.Background(), res)
}

// Compile a scene description into a packed buffer and write it to a zip
// archive.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}
	if ctx.NArg() > 1 && ctx.String("out") != "" {
		return errors.New("the --out flag can only be used when compiling a single scene")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		logger.Noticef("parsing and compiling scene: %s", sceneFile)

		loaded, err := loadScene(ctx, sceneFile)
		if err != nil {
			return err
		}

		sc := loaded.Scene
		if err = sc.Compile(); err != nil {
			return err
		}
		frameStats, err := sc.Frame()
		if err != nil {
			return err
		}

		if ctx.Bool("verify") {
			for _, mesh := range sc.Meshes() {
				if err = bvh.Verify(mesh.BLAS, mesh.Triangles); err != nil {
					return fmt.Errorf("mesh %q: %w", mesh.Name, err)
				}
			}
			if err = bvh.Verify(sc.TLAS(), sc.Descriptions()); err != nil {
				return fmt.Errorf("tlas: %w", err)
			}
			logger.Notice("verified BVH invariants for all meshes and the TLAS")
		}

		logger.Noticef("mesh statistics\n%s", meshStatsTable(sc.Meshes()))
		logger.Noticef("frame statistics\n%s", frameStatsTable([]accel.FrameStats{frameStats}))
		logger.Noticef("buffer layout\n%s", layoutTable(sc.Buffer().Layout()))

		zipFile := ctx.String("out")
		if zipFile == "" {
			zipFile = strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".zip"
		}
		if err = writer.WriteArchive(zipFile, sc.Buffer()); err != nil {
			return err
		}
	}

	return nil
}
