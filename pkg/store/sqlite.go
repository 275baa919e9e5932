package store

import (
	"database/sql"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"

	"github.com/mattn/go-sqlite3"
)

// interface guard ensures SQLite implements clerk.Store
var _ clerk.Store = SQLite{}

type SQLite struct {
	sqlStore
}

// NewSQLite returns a clerk.Store implementor that uses sqlite
func NewSQLite(fileName string) (SQLite, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return SQLite{}, sqliteErr(err, "opening database")
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)
	// init tables / indexes
	_, err = db.Exec(SETUP_SQL)
	if err != nil {
		db.Close()
		return SQLite{}, sqliteErr(err, "creating database schema")
	}
	return SQLite{sqlStore{db: db, rebind: rebindNone, dbErr: sqliteErr}}, nil
}

func sqliteErr(err error, where string) error {
	if sqErr, isSq := err.(sqlite3.Error); isSq {
		if sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked {
			// Transient database conflict: the caller should retry.
			return clerk.NewErr(clerk.DBConflict, "SQLiteStore error: %s: %v", where, err)
		}
	}
	return clerk.NewErr(clerk.NotAvailable, "SQLiteStore error: %s: %v", where, err)
}
