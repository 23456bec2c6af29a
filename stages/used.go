package stages

import (
	"io"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/pipeline"
)

// UsedNodes passes ways and relations immediately and drops all nodes that
// are not referenced by a way or a relation. Nodes are buffered until the
// input is exhausted and are returned last, in the order in which they were
// first referenced. References to missing nodes are ignored.
var UsedNodes = pipeline.TransformFunc(func(in pipeline.Stream) pipeline.Stream {
	return &usedNodesStream{
		in:    in,
		nodes: map[string]*element.Element{},
		used:  map[string]struct{}{},
	}
})

type usedNodesStream struct {
	in      pipeline.Stream
	nodes   map[string]*element.Element
	used    map[string]struct{}
	order   []string
	drained bool
	err     error
}

func (u *usedNodesStream) use(id string) {
	if _, ok := u.used[id]; ok {
		return
	}
	u.used[id] = struct{}{}
	u.order = append(u.order, id)
}

func (u *usedNodesStream) Next() (*element.Element, error) {
	if u.err != nil {
		return nil, u.err
	}
	e, err := u.next()
	if err != nil {
		u.err = err
		return nil, err
	}
	return e, nil
}

func (u *usedNodesStream) next() (*element.Element, error) {
	for !u.drained {
		e, err := u.in.Next()
		if err == io.EOF {
			u.drained = true
			break
		}
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, errors.Wrap(element.ErrInvalidElement, "used-nodes: nil element")
		}
		switch e.Kind {
		case element.Point:
			u.nodes[e.ID()] = e
		case element.Way:
			for _, ref := range e.NodeIDs {
				u.use(ref)
			}
			return e, nil
		case element.Relation:
			for i := range e.Members {
				kind, err := e.Members[i].Kind()
				if err != nil {
					return nil, errors.Wrapf(err, "used-nodes: relation %s", e.ID())
				}
				if kind == element.Point {
					u.use(e.Members[i].Ref)
				}
			}
			return e, nil
		default:
			return nil, errors.Wrapf(element.ErrInvalidElement, "used-nodes: %v", e)
		}
	}

	for len(u.order) > 0 {
		id := u.order[0]
		u.order = u.order[1:]
		if nd, ok := u.nodes[id]; ok {
			delete(u.nodes, id)
			return nd, nil
		}
	}
	u.nodes = nil
	return nil, io.EOF
}

func init() {
	pipeline.Register(pipeline.Registration{
		Name: "used-nodes",
		Help: "drop nodes not referenced by ways or relations (nodes are returned last)",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			if err := noArgs(args); err != nil {
				return pipeline.Stage{}, err
			}
			return pipeline.NewTransform("", UsedNodes), nil
		},
	})
}
