package datasource

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
)

// ConnectionParams are the adapter-independent connection settings.
type ConnectionParams struct {
	Type     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // postgres
	Encrypt  string // mssql

	// ReadOnly runs every executed statement in a transaction that cannot persist writes.
	ReadOnly bool

	MaxConns int32
	ConnTTL  time.Duration
}

// ParamsFromConfig maps the database section of the service configuration.
func ParamsFromConfig(cfg config.DatabaseConfig) ConnectionParams {
	return ConnectionParams{
		Type:     cfg.Type,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Name,
		SSLMode:  cfg.SSLMode,
		Encrypt:  cfg.Encrypt,
		ReadOnly: cfg.ReadOnly,
		MaxConns: cfg.MaxConns,
		ConnTTL:  cfg.ConnTTL,
	}
}

// Key identifies the pool for these parameters. It never contains the password.
func (p ConnectionParams) Key() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s", p.Type, p.User, p.Host, p.Port, p.Database)
}
