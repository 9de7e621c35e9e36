package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		User:     "seat",
		Password: "p@ss/word",
		Host:     "db",
		Port:     5433,
		Name:     "seatline",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://seat:p%40ss%2Fword@db:5433/seatline?sslmode=disable", cfg.DSN())
}
