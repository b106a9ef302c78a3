package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
)

// DefaultPort is the default PostgreSQL port.
const DefaultPort = 5432

// DefaultSSLMode is used when none is configured.
const DefaultSSLMode = "require"

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords with @, /, # or ? survive.
// When running in Docker, localhost resolves to host.docker.internal.
func buildConnectionString(p datasource.ConnectionParams) string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode
	}
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	host := config.ResolveHostForDocker(p.Host)

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}
