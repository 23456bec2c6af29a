// Package cache stores elements on disk while a pipeline stage needs to
// buffer more elements than should be kept in memory.
package cache

import (
	"os"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/cache/binary"
	"github.com/omniscale/osmpipe/element"
)

// ElementCache stores elements by kind and id. Storing an element with an
// existing kind and id replaces the previous one.
type ElementCache struct {
	dir string
	db  *BadgerDB
}

// NewElementCache creates a new cache in a temporary directory inside dir.
// The directory is removed on Close.
func NewElementCache(dir string) (*ElementCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating cache dir")
	}
	tmp, err := os.MkdirTemp(dir, "osmpipe-cache-")
	if err != nil {
		return nil, errors.Wrap(err, "creating cache dir")
	}
	db, err := openBadger(tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	return &ElementCache{dir: tmp, db: db}, nil
}

func key(kind element.Kind, id string) []byte {
	k := make([]byte, 0, len(id)+1)
	k = append(k, byte(kind))
	return append(k, id...)
}

func (c *ElementCache) Put(e *element.Element) error {
	data, err := binary.MarshalElement(e)
	if err != nil {
		return err
	}
	return c.db.Put(key(e.Kind, e.ID()), data)
}

// Flush makes all stored elements available for Get.
func (c *ElementCache) Flush() error {
	return errors.Wrap(c.db.Flush(), "flushing element cache")
}

// Get returns the element or NotFound.
func (c *ElementCache) Get(kind element.Kind, id string) (*element.Element, error) {
	data, err := c.db.Get(key(kind, id))
	if err != nil {
		return nil, err
	}
	return binary.UnmarshalElement(data)
}

// Close closes the cache and removes all files.
func (c *ElementCache) Close() error {
	err := c.db.Close()
	if rerr := os.RemoveAll(c.dir); err == nil {
		err = rerr
	}
	return err
}
