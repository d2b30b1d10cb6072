package cmd

import (
	"errors"
	"time"

	"github.com/achilleasa/rtaccel/accel"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/urfave/cli"
)

// Animate the instances of a scene for a number of frames. Each frame
// rebuilds the TLAS and uploads the modified buffer regions to an
// in-memory device mirror.
func Simulate(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	frames := ctx.Int("frames")
	if frames <= 0 {
		return errors.New("the number of frames must be positive")
	}
	dt := float32(ctx.Float64("dt"))

	loaded, err := loadScene(ctx, ctx.Args().First())
	if err != nil {
		return err
	}

	sc := loaded.Scene
	if err = sc.Compile(); err != nil {
		return err
	}
	logger.Noticef("mesh statistics\n%s", meshStatsTable(sc.Meshes()))

	mirror := gpubuf.NewMirror(sc.Buffer().Size())
	frameStats := make([]accel.FrameStats, 0, frames)
	start := time.Now()
	for frame := 0; frame < frames; frame++ {
		t := float32(frame) * dt
		for _, anim := range loaded.Animations {
			if err = sc.SetTransform(anim.Instance, anim.ModelAt(t)); err != nil {
				return err
			}
		}

		stats, err := sc.Step(mirror)
		if err != nil {
			return err
		}
		frameStats = append(frameStats, stats)
	}

	logger.Noticef("frame statistics\n%s", frameStatsTable(frameStats))
	logger.Noticef(
		"simulated %d frames in %d ms; %d uploads, %s uploaded",
		frames, time.Since(start).Nanoseconds()/1e6, mirror.Uploads, gpubuf.FormatSize(mirror.UploadedBytes),
	)
	return nil
}
