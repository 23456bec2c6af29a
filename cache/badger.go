package cache

import (
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/log"
)

var NotFound = errors.New("not found")

// BadgerDB is a key-value store with batched writes. Puts are collected in
// a write transaction that is committed when it grows too big or on Flush.
type BadgerDB struct {
	*badger.DB
	txn *badger.Txn
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, v ...interface{}) {
	log.Printf("[error] badger: "+format, v...)
}
func (badgerLogger) Warningf(format string, v ...interface{}) {
	log.Printf("[warn] badger: "+format, v...)
}
func (badgerLogger) Infof(format string, v ...interface{}) {
	log.Printf("[debug] badger: "+format, v...)
}
func (badgerLogger) Debugf(format string, v ...interface{}) {
	log.Printf("[debug] badger: "+format, v...)
}

func openBadger(dir string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger db in %s", dir)
	}
	return &BadgerDB{DB: db}, nil
}

func (db *BadgerDB) Put(key, value []byte) error {
	if db.txn == nil {
		db.txn = db.DB.NewTransaction(true)
	}
	err := db.txn.Set(key, value)
	if err == badger.ErrTxnTooBig {
		if err := db.txn.Commit(); err != nil {
			return err
		}
		db.txn = db.DB.NewTransaction(true)
		err = db.txn.Set(key, value)
	}
	return err
}

// Flush commits all pending puts.
func (db *BadgerDB) Flush() error {
	if db.txn == nil {
		return nil
	}
	err := db.txn.Commit()
	db.txn = nil
	return err
}

// Get returns the value for key or NotFound. Pending puts are not visible
// before Flush.
func (db *BadgerDB) Get(key []byte) ([]byte, error) {
	var data []byte
	err := db.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return NotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

func (db *BadgerDB) Close() error {
	if db.txn != nil {
		db.txn.Discard()
		db.txn = nil
	}
	return db.DB.Close()
}
