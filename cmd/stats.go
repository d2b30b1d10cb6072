package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/rtaccel/accel"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/olekukonko/tablewriter"
)

func meshStatsTable(meshes []*accel.Mesh) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mesh", "Triangles", "Nodes", "Leaves", "Max depth", "Max leaf", "Degenerate", "SAH cost", "Build time"})

	var triangles, nodes int
	var buildTime time.Duration
	for _, mesh := range meshes {
		stats := mesh.BLAS.Stats()
		table.Append([]string{
			mesh.Name,
			fmt.Sprintf("%d", stats.Primitives),
			fmt.Sprintf("%d", stats.Nodes),
			fmt.Sprintf("%d", stats.Leaves),
			fmt.Sprintf("%d", stats.MaxDepth),
			fmt.Sprintf("%d", stats.MaxLeafSize),
			fmt.Sprintf("%d", stats.DegenerateSplits),
			fmt.Sprintf("%.1f", stats.Cost),
			fmt.Sprintf("%s", stats.BuildTime),
		})
		triangles += stats.Primitives
		nodes += stats.Nodes
		buildTime += stats.BuildTime
	}
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%d", triangles), fmt.Sprintf("%d", nodes), "", "", "", "", "", fmt.Sprintf("%s", buildTime)})

	table.Render()
	return buf.String()
}

func frameStatsTable(frames []accel.FrameStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frame", "Instances", "TLAS nodes", "TLAS leaves", "TLAS depth", "Build time", "Frame time", "Uploaded"})

	var uploaded int
	var totalTime time.Duration
	for _, stats := range frames {
		table.Append([]string{
			fmt.Sprintf("%d", stats.Frame),
			fmt.Sprintf("%d", stats.Instances),
			fmt.Sprintf("%d", stats.TLASNodes),
			fmt.Sprintf("%d", stats.TLASLeaves),
			fmt.Sprintf("%d", stats.TLASDepth),
			fmt.Sprintf("%s", stats.BuildTime),
			fmt.Sprintf("%s", stats.TotalTime),
			gpubuf.FormatSize(stats.UploadedBytes),
		})
		uploaded += stats.UploadedBytes
		totalTime += stats.TotalTime
	}
	table.SetFooter([]string{"TOTAL", "", "", "", "", "", fmt.Sprintf("%s", totalTime), gpubuf.FormatSize(uploaded)})

	table.Render()
	return buf.String()
}

func layoutTable(layout gpubuf.Layout) string {
	var buf bytes.Buffer
	layout.Render(&buf)
	return buf.String()
}
