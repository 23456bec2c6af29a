package postgres

import (
	"database/sql"
	"sync"

	"github.com/omniscale/osmpipe/element"
)

// tableTx copies rows into one table with COPY FROM STDIN. Rows are sent to
// the statement in a separate goroutine.
type tableTx struct {
	Spec       *TableSpec
	Tx         *sql.Tx
	InsertStmt *sql.Stmt
	InsertSql  string

	wg   *sync.WaitGroup
	rows chan []interface{}
	mu   sync.Mutex
	err  error
}

func newTableTx(spec *TableSpec) *tableTx {
	return &tableTx{
		Spec: spec,
		wg:   &sync.WaitGroup{},
		rows: make(chan []interface{}, 64),
	}
}

func (tt *tableTx) Begin(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	tt.Tx = tx

	tt.InsertSql = tt.Spec.CopySQL()
	stmt, err := tt.Tx.Prepare(tt.InsertSql)
	if err != nil {
		return &SQLError{tt.InsertSql, err}
	}
	tt.InsertStmt = stmt

	tt.wg.Add(1)
	go tt.loop()
	return nil
}

func (tt *tableTx) loop() {
	defer tt.wg.Done()
	for row := range tt.rows {
		if tt.firstErr() != nil {
			continue
		}
		if _, err := tt.InsertStmt.Exec(row...); err != nil {
			tt.setErr(&SQLInsertError{SQLError{tt.InsertSql, err}, row})
		}
	}
}

func (tt *tableTx) setErr(err error) {
	tt.mu.Lock()
	if tt.err == nil {
		tt.err = err
	}
	tt.mu.Unlock()
}

func (tt *tableTx) firstErr() error {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.err
}

// Insert queues e. Returns the first error of a previous insert.
func (tt *tableTx) Insert(e *element.Element) error {
	if err := tt.firstErr(); err != nil {
		return err
	}
	row, err := tt.Spec.Row(e)
	if err != nil {
		return err
	}
	tt.rows <- row
	return nil
}

// End waits until all queued rows are sent.
func (tt *tableTx) End() {
	if tt.rows == nil {
		return
	}
	close(tt.rows)
	tt.rows = nil
	tt.wg.Wait()
}

func (tt *tableTx) Commit() error {
	tt.End()
	if err := tt.firstErr(); err != nil {
		return err
	}
	// flush COPY buffer
	if _, err := tt.InsertStmt.Exec(); err != nil {
		return &SQLError{tt.InsertSql, err}
	}
	if err := tt.InsertStmt.Close(); err != nil {
		return err
	}
	err := tt.Tx.Commit()
	if err != nil {
		return err
	}
	tt.Tx = nil
	return nil
}

func (tt *tableTx) Rollback() {
	tt.End()
	rollbackIfTx(&tt.Tx)
}
