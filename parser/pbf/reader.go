// Package pbf reads OpenStreetMap PBF files with the go-osm parser.
package pbf

import (
	"context"
	"io"
	"os"

	osm "github.com/omniscale/go-osm"
	"github.com/omniscale/go-osm/parser/pbf"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/parser"
)

// Reader returns the elements of a PBF file in file order. The go-osm parser
// runs with a single worker in the background and blocks until the reader
// asks for the next batch.
type Reader struct {
	nodes     chan []osm.Node
	ways      chan []osm.Way
	relations chan []osm.Relation
	done      chan error
	cancel    context.CancelFunc
	closer    io.Closer

	batch    []*element.Element
	err      error
	finished bool
}

// Open starts reading filename.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening PBF file")
	}
	r := newReader(f)
	r.closer = f
	return r, nil
}

func newReader(in io.Reader) *Reader {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reader{
		nodes:     make(chan []osm.Node),
		ways:      make(chan []osm.Way),
		relations: make(chan []osm.Relation),
		done:      make(chan error, 1),
		cancel:    cancel,
	}
	p := pbf.New(in, pbf.Config{
		Nodes:           r.nodes,
		Ways:            r.ways,
		Relations:       r.relations,
		IncludeMetadata: true,
		Concurrency:     1,
	})
	go func() {
		r.done <- p.Parse(ctx)
	}()
	return r
}

// Next returns the next element or io.EOF.
func (r *Reader) Next() (*element.Element, error) {
	for len(r.batch) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		r.err = r.fill()
	}
	e := r.batch[0]
	r.batch[0] = nil
	r.batch = r.batch[1:]
	return e, nil
}

func (r *Reader) fill() error {
	select {
	case err := <-r.done:
		r.finished = true
		if err != nil {
			return errors.Wrap(err, "parsing PBF")
		}
		return io.EOF
	case nds, ok := <-r.nodes:
		if !ok {
			r.nodes = nil
			return nil
		}
		for i := range nds {
			r.batch = append(r.batch, parser.FromNode(&nds[i]))
		}
	case ws, ok := <-r.ways:
		if !ok {
			r.ways = nil
			return nil
		}
		for i := range ws {
			r.batch = append(r.batch, parser.FromWay(&ws[i]))
		}
	case rels, ok := <-r.relations:
		if !ok {
			r.relations = nil
			return nil
		}
		for i := range rels {
			r.batch = append(r.batch, parser.FromRelation(&rels[i]))
		}
	}
	return nil
}

// Close stops the parser and closes the file.
func (r *Reader) Close() error {
	r.cancel()
	// unblock the parser if it waits to send the next batch, closed
	// channels are set to nil so that select waits for done
	for !r.finished {
		select {
		case <-r.done:
			r.finished = true
		case _, ok := <-r.nodes:
			if !ok {
				r.nodes = nil
			}
		case _, ok := <-r.ways:
			if !ok {
				r.ways = nil
			}
		case _, ok := <-r.relations:
			if !ok {
				r.relations = nil
			}
		}
	}
	r.batch = nil
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}
