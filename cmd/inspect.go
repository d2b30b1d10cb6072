package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/achilleasa/rtaccel/accel"
	"github.com/achilleasa/rtaccel/asset"
	"github.com/achilleasa/rtaccel/asset/reader"
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Print the partition layout of a compiled scene and decode selected nodes
// and instance descriptions.
func Inspect(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene argument")
	}

	res, err := asset.NewResource(ctx.Args().First(), nil)
	if err != nil {
		return err
	}
	defer res.Close()

	buf, err := reader.ReadArchive(res)
	if err != nil {
		return err
	}
	if buf.CoarseCount() <= accel.DescriptionPartition {
		return fmt.Errorf("%s: expected %d coarse partitions; got %d", res.Path(), accel.DescriptionPartition+1, buf.CoarseCount())
	}

	logger.Noticef("buffer layout\n%s", layoutTable(buf.Layout()))

	if nodeList := ctx.IntSlice("node"); len(nodeList) > 0 {
		table, err := nodeTable(buf, nodeList)
		if err != nil {
			return err
		}
		logger.Noticef("nodes\n%s", table)
	}

	if descList := ctx.IntSlice("description"); len(descList) > 0 {
		table, err := descriptionTable(buf, descList)
		if err != nil {
			return err
		}
		logger.Noticef("instance descriptions\n%s", table)
	}

	return nil
}

func nodeTable(buf *gpubuf.Buffer, nodeList []int) (string, error) {
	nodes := gpubuf.BytesToFloat32(buf.CoarseBytes(accel.NodePartition))
	nodeCount := len(nodes) / bvh.NodeStride

	var out bytes.Buffer
	table := tablewriter.NewWriter(&out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Node", "Owner", "Type", "Min", "Max", "Left child / first index", "Count"})
	for _, nodeIndex := range nodeList {
		if nodeIndex < 0 || nodeIndex >= nodeCount {
			return "", fmt.Errorf("node index %d out of range [0, %d)", nodeIndex, nodeCount)
		}

		node := bvh.DecodeNode(nodes[nodeIndex*bvh.NodeStride:])
		nodeType := "internal"
		if node.IsLeaf() {
			nodeType = "leaf"
		}
		table.Append([]string{
			fmt.Sprintf("%d", nodeIndex),
			partitionOwner(buf, accel.NodePartition, nodeIndex*bvh.NodeSize),
			nodeType,
			fmt.Sprintf("%v", node.Min),
			fmt.Sprintf("%v", node.Max),
			fmt.Sprintf("%d", node.LeftChild),
			fmt.Sprintf("%d", node.PrimitiveCount),
		})
	}
	table.Render()
	return out.String(), nil
}

func descriptionTable(buf *gpubuf.Buffer, descList []int) (string, error) {
	descs := gpubuf.BytesToFloat32(buf.CoarseBytes(accel.DescriptionPartition))
	descCount := len(descs) / accel.DescriptionStride

	var out bytes.Buffer
	table := tablewriter.NewWriter(&out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Instance", "Root node", "Inverse model (row-major)"})
	for _, descIndex := range descList {
		if descIndex < 0 || descIndex >= descCount {
			return "", fmt.Errorf("description index %d out of range [0, %d)", descIndex, descCount)
		}

		desc := descs[descIndex*accel.DescriptionStride:]
		table.Append([]string{
			fmt.Sprintf("%d", descIndex),
			fmt.Sprintf("%d", uint32(desc[16])),
			fmt.Sprintf("%v\n%v\n%v\n%v", desc[0:4], desc[4:8], desc[8:12], desc[12:16]),
		})
	}
	table.Render()
	return out.String(), nil
}

// Find the name of the fine partition containing the given byte offset.
func partitionOwner(buf *gpubuf.Buffer, coarse, offset int) string {
	for fine := 0; fine < buf.FineCount(coarse); fine++ {
		fp := buf.Fine(coarse, fine)
		if offset >= fp.Offset && offset < fp.End() {
			return fp.Name
		}
	}
	return "-"
}
