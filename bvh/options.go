package bvh

import (
	"fmt"
	"strings"
)

// Strategy selects how the builder picks split planes.
type Strategy uint8

const (
	// Split along the longest axis of the node bbox at its midpoint.
	MedianSplit Strategy = iota

	// Evaluate binned split candidates along all axes using the surface
	// area heuristic and pick the cheapest one. Nodes are not split if no
	// candidate beats the cost of keeping the node as a leaf.
	SurfaceAreaHeuristic
)

// The default number of SAH bins per axis.
const DefaultBins = 16

// Get strategy name.
func (s Strategy) String() string {
	switch s {
	case MedianSplit:
		return "median"
	case SurfaceAreaHeuristic:
		return "sah"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Parse a strategy name ("median" or "sah").
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "median", "midpoint":
		return MedianSplit, nil
	case "sah", "surface-area", "surface_area":
		return SurfaceAreaHeuristic, nil
	}
	return 0, fmt.Errorf("bvh: unknown split strategy %q", name)
}

// Options control tree construction.
type Options struct {
	// The split selection strategy.
	Strategy Strategy

	// Nodes referencing at most LeafSize primitives are never split.
	LeafSize int

	// The number of bins evaluated per axis by the SAH strategy.
	Bins int
}

// Get the default options for a strategy. Median splits stop at 2
// primitives per leaf while SAH splits keep going until a single primitive
// is left or splitting no longer pays off.
func DefaultOptions(strategy Strategy) Options {
	opts := Options{
		Strategy: strategy,
		LeafSize: 1,
		Bins:     DefaultBins,
	}
	if strategy == MedianSplit {
		opts.LeafSize = 2
	}
	return opts
}

// Replace unset fields with their defaults and validate the strategy.
func (o Options) normalize() (Options, error) {
	if o.Strategy != MedianSplit && o.Strategy != SurfaceAreaHeuristic {
		return o, fmt.Errorf("bvh: unsupported split strategy %s", o.Strategy)
	}
	if o.LeafSize < 1 {
		o.LeafSize = DefaultOptions(o.Strategy).LeafSize
	}
	if o.Bins < 2 {
		o.Bins = DefaultBins
	}
	return o, nil
}
