package gpubuf

import (
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/olekukonko/tablewriter"
)

// CoarseLayout describes a coarse partition and its fine partitions.
type CoarseLayout struct {
	Partition `yaml:",inline"`
	Usage     uint64      `yaml:"usage"`
	Fine      []Partition `yaml:"fine,omitempty"`
}

// Layout is a serializable snapshot of a buffer partition table.
type Layout struct {
	Name   string         `yaml:"name"`
	Size   int            `yaml:"size"`
	Coarse []CoarseLayout `yaml:"coarse"`
}

// Get a snapshot of the buffer partition table.
func (b *Buffer) Layout() Layout {
	l := Layout{
		Name:   b.name,
		Size:   b.size,
		Coarse: make([]CoarseLayout, len(b.coarse)),
	}
	for i, cp := range b.coarse {
		l.Coarse[i] = CoarseLayout{
			Partition: cp.Partition,
			Usage:     uint64(cp.usage),
			Fine:      append([]Partition(nil), cp.fine...),
		}
	}
	return l
}

// Recreate a buffer from a layout snapshot and the host memory contents it
// describes. The returned buffer has no dirty regions.
func FromLayout(l Layout, data []byte) (*Buffer, error) {
	if len(data) != l.Size {
		return nil, fmt.Errorf("gpubuf: layout %s expects %d bytes; got %d", l.Name, l.Size, len(data))
	}

	b := &Buffer{name: l.Name, size: l.Size, data: data}
	for _, cl := range l.Coarse {
		if cl.Offset < 0 || cl.End() > l.Size {
			return nil, fmt.Errorf("gpubuf: layout %s: coarse partition %q [%d, %d) out of bounds", l.Name, cl.Name, cl.Offset, cl.End())
		}
		cp := &coarsePartition{
			Partition: cl.Partition,
			usage:     gputypes.BufferUsage(cl.Usage),
			fine:      append([]Partition(nil), cl.Fine...),
		}
		for _, fp := range cp.fine {
			if fp.Offset < 0 || fp.End() > cp.Size {
				return nil, fmt.Errorf("gpubuf: layout %s: fine partition %q exceeds coarse partition %q", l.Name, fp.Name, cp.Name)
			}
			if fp.End() > cp.fineUsed {
				cp.fineUsed = fp.End()
			}
		}
		b.coarse = append(b.coarse, cp)
	}
	return b, nil
}

// Render the partition table.
func (l Layout) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Partition", "Usage", "Offset", "Size", "Node bias", "Primitive bias"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetFooter([]string{l.Name, "", "", FormatSize(l.Size), "", ""})

	for _, cl := range l.Coarse {
		table.Append([]string{
			cl.Name,
			fmtUsage(gputypes.BufferUsage(cl.Usage)),
			fmt.Sprintf("%d", cl.Offset),
			FormatSize(cl.Size),
			"", "",
		})
		for _, fp := range cl.Fine {
			table.Append([]string{
				"  " + fp.Name,
				"",
				fmt.Sprintf("+%d", fp.Offset),
				FormatSize(fp.Size),
				fmt.Sprintf("%d", fp.Payload.NodeBias),
				fmt.Sprintf("%d", fp.Payload.PrimitiveBias),
			})
		}
	}

	table.Render()
}

func fmtUsage(usage gputypes.BufferUsage) string {
	var flags []string
	if usage.Contains(gputypes.BufferUsageStorage) {
		flags = append(flags, "storage")
	}
	if usage.Contains(gputypes.BufferUsageUniform) {
		flags = append(flags, "uniform")
	}
	if usage.Contains(gputypes.BufferUsageCopyDst) {
		flags = append(flags, "copy-dst")
	}
	return strings.Join(flags, "|")
}

// FormatSize renders a byte count using decimal units.
func FormatSize(byteSize int) string {
	if byteSize < 1e3 {
		return fmt.Sprintf("%d bytes", byteSize)
	} else if byteSize < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(byteSize)/1e3)
	}
	return fmt.Sprintf("%3.1f mb", float32(byteSize)/1e6)
}
