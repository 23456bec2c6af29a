package stages

import (
	"io"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/cache"
	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/pipeline"
)

var kinds = []element.Kind{element.Point, element.Way, element.Relation}

// SortIDs sorts ids in place. If all ids are integers they are sorted
// numerically (ties of equal numbers like "01" and "1" by their string),
// otherwise lexically by bytes.
func SortIDs(ids []string) {
	nums := make(map[string]int64, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		nums[id] = n
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := nums[ids[i]], nums[ids[j]]
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
}

// Sort buffers all elements and returns all nodes, then all ways, then all
// relations, each sorted by id (see SortIDs). For duplicate ids only the last
// element is kept. With a CacheDir, elements are stored on disk while
// buffering; only the ids are kept in memory.
type Sort struct {
	CacheDir string
}

func (s *Sort) Apply(in pipeline.Stream) pipeline.Stream {
	return &sortStream{in: in, cacheDir: s.CacheDir}
}

type elementStore interface {
	put(e *element.Element) error
	ids(kind element.Kind) []string
	get(kind element.Kind, id string) (*element.Element, error)
	close() error
}

type memStore map[element.Kind]map[string]*element.Element

func (m memStore) put(e *element.Element) error {
	m[e.Kind][e.ID()] = e
	return nil
}

func (m memStore) ids(kind element.Kind) []string {
	ids := make([]string, 0, len(m[kind]))
	for id := range m[kind] {
		ids = append(ids, id)
	}
	return ids
}

func (m memStore) get(kind element.Kind, id string) (*element.Element, error) {
	e := m[kind][id]
	delete(m[kind], id)
	return e, nil
}

func (m memStore) close() error { return nil }

type diskStore struct {
	cache *cache.ElementCache
	seen  map[element.Kind]map[string]struct{}
}

func (d *diskStore) put(e *element.Element) error {
	d.seen[e.Kind][e.ID()] = struct{}{}
	return d.cache.Put(e)
}

func (d *diskStore) ids(kind element.Kind) []string {
	ids := make([]string, 0, len(d.seen[kind]))
	for id := range d.seen[kind] {
		ids = append(ids, id)
	}
	return ids
}

func (d *diskStore) get(kind element.Kind, id string) (*element.Element, error) {
	return d.cache.Get(kind, id)
}

func (d *diskStore) close() error { return d.cache.Close() }

type sortStream struct {
	in       pipeline.Stream
	cacheDir string
	store    elementStore
	kindIdx  int
	ids      []string
	err      error
}

func (s *sortStream) newStore() (elementStore, error) {
	if s.cacheDir == "" {
		m := memStore{}
		for _, k := range kinds {
			m[k] = map[string]*element.Element{}
		}
		return m, nil
	}
	c, err := cache.NewElementCache(s.cacheDir)
	if err != nil {
		return nil, err
	}
	log.Printf("[info] sort: buffering elements in %s", s.cacheDir)
	d := &diskStore{cache: c, seen: map[element.Kind]map[string]struct{}{}}
	for _, k := range kinds {
		d.seen[k] = map[string]struct{}{}
	}
	return d, nil
}

func (s *sortStream) buffer() error {
	store, err := s.newStore()
	if err != nil {
		return err
	}
	s.store = store
	for {
		e, err := s.in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if e == nil || !e.Kind.Valid() {
			return errors.Wrapf(element.ErrInvalidElement, "sort: %v", e)
		}
		if err := store.put(e); err != nil {
			return err
		}
	}
	if d, ok := store.(*diskStore); ok {
		if err := d.cache.Flush(); err != nil {
			return err
		}
	}
	s.kindIdx = -1
	return nil
}

func (s *sortStream) Next() (*element.Element, error) {
	if s.err != nil {
		return nil, s.err
	}
	e, err := s.next()
	if err != nil {
		s.err = err
		return nil, err
	}
	return e, nil
}

func (s *sortStream) next() (*element.Element, error) {
	if s.store == nil {
		if err := s.buffer(); err != nil {
			return nil, err
		}
	}
	for len(s.ids) == 0 {
		s.kindIdx += 1
		if s.kindIdx >= len(kinds) {
			return nil, io.EOF
		}
		s.ids = s.store.ids(kinds[s.kindIdx])
		SortIDs(s.ids)
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	e, err := s.store.get(kinds[s.kindIdx], id)
	if err != nil {
		return nil, errors.Wrapf(err, "sort: reading %s %s", kinds[s.kindIdx], id)
	}
	return e, nil
}

// Close removes the on-disk buffer.
func (s *sortStream) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.close()
	s.store = nil
	if s.err == nil {
		s.err = io.EOF
	}
	return err
}

func init() {
	pipeline.Register(pipeline.Registration{
		Name:  "sort",
		Usage: "[cachedir=DIR]",
		Help:  "sort nodes, ways and relations by id (buffers all elements)",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			params, err := args.Bind("cachedir")
			if err != nil {
				return pipeline.Stage{}, err
			}
			return pipeline.NewTransform("", &Sort{CacheDir: params.String("cachedir", "")}), nil
		},
	})
}
