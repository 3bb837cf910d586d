package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyDSN(t *testing.T) {
	_, err := NewMySQLConnection("", PoolOpts{})
	assert.ErrorContains(t, err, "empty mysql DSN")

	_, err = NewClickHouseConnection("", PoolOpts{})
	assert.ErrorContains(t, err, "empty clickhouse DSN")
}

func TestBadMySQLDSN(t *testing.T) {
	_, err := NewMySQLConnection("not a dsn", PoolOpts{})
	assert.Error(t, err)
}
