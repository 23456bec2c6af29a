package stages

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/pipeline"
	"github.com/omniscale/osmpipe/stats"
)

// BBox passes nodes inside the bounding box (bounds included), ways with at
// least one passed node and relations with at least one passed member.
//
// The input is processed in a single pass and is never buffered. Nodes need
// to come before the ways that reference them and ways before relations,
// as in regular OSM files. Ways and relations that reference elements that
// come later are dropped.
type BBox struct {
	Top, Left, Bottom, Right float64

	nodes     map[string]struct{}
	ways      map[string]struct{}
	relations map[string]struct{}
	passed    stats.ElementCount
}

// NewBBox validates the coordinates and returns a new BBox filter.
func NewBBox(top, left, bottom, right float64) (*BBox, error) {
	for _, lat := range []float64{top, bottom} {
		if !(lat >= -90 && lat <= 90) {
			return nil, errors.Errorf("latitude %v outside of -90..90", lat)
		}
	}
	for _, lon := range []float64{left, right} {
		if !(lon >= -180 && lon <= 180) {
			return nil, errors.Errorf("longitude %v outside of -180..180", lon)
		}
	}
	if bottom > top {
		return nil, errors.Errorf("bottom %v is above top %v", bottom, top)
	}
	if left > right {
		return nil, errors.Errorf("left %v is right of right %v", left, right)
	}
	return &BBox{Top: top, Left: left, Bottom: bottom, Right: right}, nil
}

func (b *BBox) Contains(lat, lon float64) bool {
	return b.Bottom <= lat && lat <= b.Top && b.Left <= lon && lon <= b.Right
}

// Passed returns the number of elements that passed the filter.
func (b *BBox) Passed() stats.ElementCount {
	return b.passed
}

func (b *BBox) Apply(in pipeline.Stream) pipeline.Stream {
	b.nodes = map[string]struct{}{}
	b.ways = map[string]struct{}{}
	b.relations = map[string]struct{}{}
	b.passed = stats.ElementCount{}

	return pipeline.StreamFunc(func() (*element.Element, error) {
		for {
			e, err := in.Next()
			if err != nil {
				return nil, err
			}
			ok, err := b.pass(e)
			if err != nil {
				return nil, err
			}
			if ok {
				return e, nil
			}
		}
	})
}

func (b *BBox) pass(e *element.Element) (bool, error) {
	if e == nil {
		return false, errors.Wrap(element.ErrInvalidElement, "bbox: nil element")
	}
	switch e.Kind {
	case element.Point:
		lat, err := strconv.ParseFloat(e.Attr("lat"), 64)
		if err != nil {
			return false, errors.Wrapf(err, "bbox: lat of node %s", e.ID())
		}
		lon, err := strconv.ParseFloat(e.Attr("lon"), 64)
		if err != nil {
			return false, errors.Wrapf(err, "bbox: lon of node %s", e.ID())
		}
		if !b.Contains(lat, lon) {
			return false, nil
		}
		b.nodes[e.ID()] = struct{}{}
		b.passed.Nodes += 1
		return true, nil
	case element.Way:
		for _, ref := range e.NodeIDs {
			if _, ok := b.nodes[ref]; ok {
				b.ways[e.ID()] = struct{}{}
				b.passed.Ways += 1
				return true, nil
			}
		}
		return false, nil
	case element.Relation:
		for i := range e.Members {
			kind, err := e.Members[i].Kind()
			if err != nil {
				return false, errors.Wrapf(err, "bbox: relation %s", e.ID())
			}
			var passed map[string]struct{}
			switch kind {
			case element.Point:
				passed = b.nodes
			case element.Way:
				passed = b.ways
			case element.Relation:
				passed = b.relations
			}
			if _, ok := passed[e.Members[i].Ref]; ok {
				b.relations[e.ID()] = struct{}{}
				b.passed.Relations += 1
				return true, nil
			}
		}
		return false, nil
	}
	return false, errors.Wrapf(element.ErrInvalidElement, "bbox: %v", e)
}

func init() {
	pipeline.Register(pipeline.Registration{
		Name:  "bbox",
		Usage: "top left bottom right",
		Help:  "pass elements inside the bounding box and ways/relations referencing them",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			params, err := args.Bind("top", "left", "bottom", "right")
			if err != nil {
				return pipeline.Stage{}, err
			}
			var coords [4]float64
			for i, name := range []string{"top", "left", "bottom", "right"} {
				if coords[i], err = params.RequireFloat(name); err != nil {
					return pipeline.Stage{}, err
				}
			}
			b, err := NewBBox(coords[0], coords[1], coords[2], coords[3])
			if err != nil {
				return pipeline.Stage{}, err
			}
			return pipeline.NewTransform("", b), nil
		},
	})
}
