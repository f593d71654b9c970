// Package sql opens the postgres database described by a conf.PostgresConf.
package sql

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tradepost/funcircle/pkg/conf"
)

// Open returns a database handle for the given configuration.
func Open(config conf.PostgresConf) (*sql.DB, error) {
	return sql.Open("postgres", DataSource(config))
}

// DataSource formats the lib/pq connection string.
func DataSource(config conf.PostgresConf) string {
	ssl := config.SSL
	if ssl == "" {
		ssl = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, ssl,
	)
}
