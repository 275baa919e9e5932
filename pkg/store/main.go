package store

import (
	"strings"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// NewStore opens the configured store: a postgres:// URL selects
// postgres, anything else is a sqlite file name.
func NewStore(config clerk.Config) (clerk.Store, error) {
	db := config.Store.DBFile
	if strings.HasPrefix(db, "postgres://") || strings.HasPrefix(db, "postgresql://") {
		return NewPostgresStore(db)
	}
	return NewSQLite(db)
}
