package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		expected string
	}{
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"localhost", false, "localhost"},
		{"db.example.com", true, "db.example.com"},
		{"host.docker.internal", true, "host.docker.internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolveHost(tt.host, tt.inDocker), "host=%s docker=%v", tt.host, tt.inDocker)
	}
}

func TestResolveEndpoint(t *testing.T) {
	assert.Equal(t, "http://host.docker.internal:1234/v1", resolveEndpoint("http://127.0.0.1:1234/v1", true))
	assert.Equal(t, "http://127.0.0.1:1234/v1", resolveEndpoint("http://127.0.0.1:1234/v1", false))
	assert.Equal(t, "https://api.openai.com/v1", resolveEndpoint("https://api.openai.com/v1", true))
	assert.Equal(t, "http://host.docker.internal/v1", resolveEndpoint("http://localhost/v1", true))
	assert.Equal(t, "not a url", resolveEndpoint("not a url", true))
}

func TestResolveHostForDocker_NonLoopbackUnchanged(t *testing.T) {
	for _, host := range []string{"mydb.example.com", "192.168.1.100"} {
		assert.Equal(t, host, ResolveHostForDocker(host))
	}
}
