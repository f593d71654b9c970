package sql_test

import (
	"testing"

	"github.com/tradepost/funcircle/pkg/conf"
	"github.com/tradepost/funcircle/pkg/sql"
)

func TestDataSource(t *testing.T) {
	var tests = []struct {
		in       conf.PostgresConf
		expected string
	}{
		{
			conf.PostgresConf{Host: "127.0.0.1", Port: 5432, User: "u", Password: "p", Database: "d"},
			"host=127.0.0.1 port=5432 user=u password=p dbname=d sslmode=disable",
		},
		{
			conf.PostgresConf{Host: "db", Port: 1, User: "u", Password: "p", Database: "d", SSL: "require"},
			"host=db port=1 user=u password=p dbname=d sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			actual := sql.DataSource(tt.in)
			if actual != tt.expected {
				t.Fatalf("expected %s actual %s", tt.expected, actual)
			}
		})
	}
}
