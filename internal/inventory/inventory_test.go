package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubemcp/internal/config"
	"kubemcp/internal/runtime"
)

const sample = `servers:
  - id: github-tools
    catalogId: github
    ownerId: user-1
    teamId: team-a
    secretId: gh
    serverType: local
  - id: hosted
    catalogId: hosted
    serverType: remote
  - id: bare
    catalogId: github
catalog:
  github:
    image: ghcr.io/example/github-mcp:1.2.0
    env:
      - key: LOG_LEVEL
        type: secret
        value: info
secrets:
  gh:
    GITHUB_TOKEN: ghp_example
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	inv, err := Load(path)
	require.NoError(t, err)
	require.Len(t, inv.Servers, 3)

	s, ok := inv.Server("github-tools")
	require.True(t, ok)
	assert.Equal(t, "team-a", s.Team())
	assert.Equal(t, runtime.ServerTypeLocal, s.ServerType)

	local := inv.LocalServers()
	require.Len(t, local, 2)
	assert.Equal(t, "github-tools", local[0].ID)
	assert.Equal(t, "bare", local[1].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStartInput(t *testing.T) {
	inv, err := Parse([]byte(sample))
	require.NoError(t, err)

	in, err := inv.StartInput("github-tools")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GITHUB_TOKEN": "ghp_example"}, in.SecretValues)
	require.Len(t, in.CatalogEnv, 1)
	assert.Equal(t, "LOG_LEVEL", in.CatalogEnv[0].Key)
	assert.Equal(t, "ghcr.io/example/github-mcp:1.2.0", in.Record.Image)

	in, err = inv.StartInput("bare")
	require.NoError(t, err)
	assert.Empty(t, in.SecretValues)

	_, err = inv.StartInput("missing")
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{"missing id", "servers:\n  - catalogId: x\n", "servers[0].id"},
		{"duplicate id", "servers:\n  - id: a\n  - id: a\n", "servers[1].id"},
		{"bad type", "servers:\n  - id: a\n    serverType: hybrid\n", "servers[0].serverType"},
		{"bad port", "servers:\n  - id: a\n    port: 70000\n", "servers[0].port"},
		{"credential without user", "servers:\n  - id: a\n    registryCredential:\n      registry: ghcr.io\n", "servers[0].registryCredential.username"},
		{"unknown secret", "servers:\n  - id: a\n    secretId: nope\n", "servers[0].secretId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var verrs config.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			fields := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("servers: [unclosed"))
	assert.Error(t, err)
}
