package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/rtaccel/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	buildFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "blas-strategy",
			Usage: "override the mesh BVH split strategy (median or sah)",
		},
		cli.StringFlag{
			Name:  "tlas-strategy",
			Usage: "override the instance BVH split strategy (median or sah)",
		},
		cli.IntFlag{
			Name:  "leaf-size",
			Usage: "override the max number of triangles in a mesh BVH leaf",
		},
	}

	app := cli.NewApp()
	app.Name = "rtaccel"
	app.Usage = "build and pack two-level BVH acceleration structures for GPU ray tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile a scene description into a packed GPU buffer",
			Description: `
Load the meshes referenced by a yaml scene description, build a BVH for each
mesh and a TLAS over the scene instances and pack everything into a single
buffer with separate partitions for nodes, indices, triangles and instance
descriptions.

The packed buffer and its partition layout are written to a zip archive which
can be examined with the inspect command.`,
			ArgsUsage: "scene_file1.yaml scene_file2.yaml ...",
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "verify",
					Usage: "verify the structural invariants of all generated trees",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "archive filename (defaults to the scene filename with a .zip extension)",
				},
			}, buildFlags...),
			Action: cmd.CompileScene,
		},
		{
			Name:  "simulate",
			Usage: "animate scene instances and rebuild the TLAS every frame",
			Description: `
Compile a scene and then spin each instance by its angular velocity for a
number of frames. Each frame rebuilds the TLAS and uploads the modified buffer
regions; mesh data is only uploaded by the first frame.`,
			ArgsUsage: "scene_file.yaml",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "frames",
					Value: 60,
					Usage: "number of frames to simulate",
				},
				cli.Float64Flag{
					Name:  "dt",
					Value: 1.0 / 60.0,
					Usage: "time step between frames in seconds",
				},
			}, buildFlags...),
			Action: cmd.Simulate,
		},
		{
			Name:      "inspect",
			Usage:     "print the partition layout of a compiled scene",
			ArgsUsage: "scene.zip",
			Flags: []cli.Flag{
				cli.IntSliceFlag{
					Name:  "node, n",
					Usage: "decode the node with this index",
				},
				cli.IntSliceFlag{
					Name:  "description, d",
					Usage: "decode the instance description with this index",
				},
			},
			Action: cmd.Inspect,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
