package db

import (
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// NewMySQLConnection opens the warehouse. The DSN is forced to parse
// DATE/DATETIME columns into time.Time so fetched frames get Time columns.
func NewMySQLConnection(dsn string, opts PoolOpts) (*sqlx.DB, error) {
	if dsn != "" {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, err
		}
		cfg.ParseTime = true
		if cfg.Loc == nil {
			cfg.Loc = time.UTC
		}
		dsn = cfg.FormatDSN()
	}
	return open("mysql", dsn, opts, 5*time.Second)
}
