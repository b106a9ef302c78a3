package mssql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
)

// DefaultPort is the default SQL Server port.
const DefaultPort = 1433

// DefaultConnectionTimeout is the login timeout in seconds.
const DefaultConnectionTimeout = 30

// buildConnectionString builds a sqlserver:// URL for SQL authentication.
// Encrypt accepts the driver's values: "true", "false", "strict" or "disable".
func buildConnectionString(p datasource.ConnectionParams) string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	query := url.Values{}
	query.Add("database", p.Database)
	if enc := strings.ToLower(strings.TrimSpace(p.Encrypt)); enc != "" {
		query.Add("encrypt", enc)
	}
	query.Add("connection timeout", fmt.Sprintf("%d", DefaultConnectionTimeout))
	query.Add("app name", "ekaya-askdb")

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(p.Host), port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
