// Package osc reads OpenStreetMap change files (.osc, .osc.gz) with the
// go-osm diff parser. Created and modified elements are returned, deletions
// are skipped.
package osc

import (
	"context"
	"io"
	"os"
	"strings"

	osm "github.com/omniscale/go-osm"
	"github.com/omniscale/go-osm/parser/diff"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/parser"
)

type Reader struct {
	diffs   chan osm.Diff
	done    chan error
	cancel  context.CancelFunc
	closer  io.Closer
	err     error
	deleted int
}

// Open starts reading filename. Files ending with .gz are decompressed.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening diff file")
	}
	r, err := newReader(f, strings.HasSuffix(strings.ToLower(filename), ".gz"))
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func newReader(in io.Reader, gzipped bool) (*Reader, error) {
	r := &Reader{
		diffs: make(chan osm.Diff),
		done:  make(chan error, 1),
	}
	conf := diff.Config{Diffs: r.diffs, IncludeMetadata: true}
	var p *diff.Parser
	if gzipped {
		var err error
		p, err = diff.NewGZIP(in, conf)
		if err != nil {
			return nil, errors.Wrap(err, "initializing diff parser")
		}
	} else {
		p = diff.New(in, conf)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		r.done <- p.Parse(ctx)
	}()
	return r, nil
}

// Next returns the next created or modified element or io.EOF.
func (r *Reader) Next() (*element.Element, error) {
	if r.err != nil {
		return nil, r.err
	}
	for d := range r.diffs {
		if d.Delete {
			r.deleted += 1
			continue
		}
		switch {
		case d.Node != nil:
			return parser.FromNode(d.Node), nil
		case d.Way != nil:
			return parser.FromWay(d.Way), nil
		case d.Rel != nil:
			return parser.FromRelation(d.Rel), nil
		}
	}
	r.diffs = nil
	if err := <-r.done; err != nil {
		r.err = errors.Wrap(err, "parsing diff")
		return nil, r.err
	}
	if r.deleted > 0 {
		log.Printf("[info] skipped %d deleted elements", r.deleted)
	}
	r.err = io.EOF
	return nil, io.EOF
}

// Close stops the parser and closes the file.
func (r *Reader) Close() error {
	r.cancel()
	if r.diffs != nil {
		for range r.diffs {
		}
		r.diffs = nil
	}
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}
