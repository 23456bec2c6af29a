// Package stages implements the pipeline stages and registers them by name.
package stages

import (
	"io"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/pipeline"
)

// OnlyKind passes elements of kind and drops all others.
func OnlyKind(kind element.Kind) pipeline.Transform {
	return pipeline.Filter(func(e *element.Element) bool { return e.Kind == kind })
}

// RejectKind drops elements of kind and passes all others.
func RejectKind(kind element.Kind) pipeline.Transform {
	return pipeline.Filter(func(e *element.Element) bool { return e.Kind != kind })
}

// Limit passes the first n elements. The input is not read any further once
// n elements were passed. n <= 0 passes all elements.
func Limit(n int) pipeline.Transform {
	return pipeline.TransformFunc(func(in pipeline.Stream) pipeline.Stream {
		if n <= 0 {
			return in
		}
		passed := 0
		return pipeline.StreamFunc(func() (*element.Element, error) {
			if passed >= n {
				return nil, io.EOF
			}
			e, err := in.Next()
			if err != nil {
				return nil, err
			}
			passed += 1
			return e, nil
		})
	})
}

// DefaultTags sets each tag of defaults that is missing in an element.
// Existing tags are never changed.
func DefaultTags(defaults map[string]string) pipeline.Transform {
	return pipeline.Map(func(e *element.Element) error {
		if e.Tags == nil {
			e.Tags = make(element.Tags, len(defaults))
		}
		for k, v := range defaults {
			if _, ok := e.Tags[k]; !ok {
				e.Tags[k] = v
			}
		}
		return nil
	})
}

// Discard reads all elements and drops them.
var Discard = pipeline.SinkFunc(func(in pipeline.Stream) error {
	_, err := pipeline.Drain(in)
	return err
})

func noArgs(args pipeline.Args) error {
	if args.Len() > 0 {
		return errors.New("takes no arguments")
	}
	return nil
}

func kindFilter(kind element.Kind, only bool) func(pipeline.Args) (pipeline.Stage, error) {
	return func(args pipeline.Args) (pipeline.Stage, error) {
		if err := noArgs(args); err != nil {
			return pipeline.Stage{}, err
		}
		if only {
			return pipeline.NewTransform("", OnlyKind(kind)), nil
		}
		return pipeline.NewTransform("", RejectKind(kind)), nil
	}
}

func init() {
	for _, k := range []struct {
		kind element.Kind
		name string
	}{
		{element.Point, "nodes"},
		{element.Way, "ways"},
		{element.Relation, "relations"},
	} {
		pipeline.Register(pipeline.Registration{
			Name: "only-" + k.name,
			Help: "pass only " + k.name,
			New:  kindFilter(k.kind, true),
		})
		pipeline.Register(pipeline.Registration{
			Name: "reject-" + k.name,
			Help: "drop all " + k.name,
			New:  kindFilter(k.kind, false),
		})
	}

	pipeline.Register(pipeline.Registration{
		Name:  "limit",
		Usage: "[num]",
		Help:  "pass only the first num elements (0 for all)",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			params, err := args.Bind("num")
			if err != nil {
				return pipeline.Stage{}, err
			}
			num, err := params.Int("num", 0)
			if err != nil {
				return pipeline.Stage{}, err
			}
			return pipeline.NewTransform("", Limit(num)), nil
		},
	})

	pipeline.Register(pipeline.Registration{
		Name:  "default-tags",
		Usage: "key=value...",
		Help:  "add tags to all elements that do not have them",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			if len(args.Positional) > 0 {
				return pipeline.Stage{}, errors.New("only takes key=value arguments")
			}
			return pipeline.NewTransform("", DefaultTags(args.Keywords)), nil
		},
	})

	pipeline.Register(pipeline.Registration{
		Name: "write-null",
		Help: "read and discard all elements",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			if err := noArgs(args); err != nil {
				return pipeline.Stage{}, err
			}
			return pipeline.NewSink("", Discard), nil
		},
	})
}
