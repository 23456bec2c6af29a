// Package pipeline chains sources, transforms and sinks into a single lazy
// pass over a stream of OSM elements.
//
// Streams are pull based: a transform only asks its input for the next
// element when its own consumer asks for one. Stages that have to see the
// whole input (sort, used-nodes) buffer internally, all other stages pass
// elements through one by one.
package pipeline

import (
	"io"

	"github.com/omniscale/osmpipe/element"
)

// Stream is a finite, lazily evaluated sequence of elements.
type Stream interface {
	// Next returns the next element. It returns io.EOF after the last
	// element. Next must not be called again after an error.
	Next() (*element.Element, error)
}

// StreamFunc adapts a function to the Stream interface.
type StreamFunc func() (*element.Element, error)

func (f StreamFunc) Next() (*element.Element, error) { return f() }

// Source creates the first stream of a pipeline. Streams that also implement
// io.Closer are closed after the run.
type Source interface {
	Open() (Stream, error)
}

type SourceFunc func() (Stream, error)

func (f SourceFunc) Open() (Stream, error) { return f() }

// Transform turns one stream into another.
type Transform interface {
	Apply(in Stream) Stream
}

type TransformFunc func(in Stream) Stream

func (f TransformFunc) Apply(in Stream) Stream { return f(in) }

// Sink consumes a stream to exhaustion.
type Sink interface {
	Consume(in Stream) error
}

type SinkFunc func(in Stream) error

func (f SinkFunc) Consume(in Stream) error { return f(in) }

// Filter returns a transform that passes all elements for which keep
// returns true.
func Filter(keep func(*element.Element) bool) Transform {
	return TransformFunc(func(in Stream) Stream {
		return StreamFunc(func() (*element.Element, error) {
			for {
				e, err := in.Next()
				if err != nil {
					return nil, err
				}
				if keep(e) {
					return e, nil
				}
			}
		})
	})
}

// Map returns a transform that calls fn for each element before passing it on.
func Map(fn func(*element.Element) error) Transform {
	return TransformFunc(func(in Stream) Stream {
		return StreamFunc(func() (*element.Element, error) {
			e, err := in.Next()
			if err != nil {
				return nil, err
			}
			if err := fn(e); err != nil {
				return nil, err
			}
			return e, nil
		})
	})
}

type sliceStream struct {
	elems []*element.Element
	pos   int
}

func (s *sliceStream) Next() (*element.Element, error) {
	if s.pos >= len(s.elems) {
		return nil, io.EOF
	}
	e := s.elems[s.pos]
	s.pos += 1
	return e, nil
}

// FromSlice returns a stream over elems.
func FromSlice(elems ...*element.Element) Stream {
	return &sliceStream{elems: elems}
}

// Drain pulls in until io.EOF and returns the number of elements.
func Drain(in Stream) (int, error) {
	n := 0
	for {
		_, err := in.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n += 1
	}
}

// Collect pulls in until io.EOF and returns all elements.
func Collect(in Stream) ([]*element.Element, error) {
	var elems []*element.Element
	for {
		e, err := in.Next()
		if err == io.EOF {
			return elems, nil
		}
		if err != nil {
			return elems, err
		}
		elems = append(elems, e)
	}
}
