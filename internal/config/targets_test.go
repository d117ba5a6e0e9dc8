package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTargetsFile_Valid(t *testing.T) {
	yaml := `targets:
  - name: web
    filter: ^web-.*\.service$
  - name: database
    unit: postgresql.service
    timeout: 20s
  - name: everything
    filter: .*\.service$
`
	path := writeTargetsFile(t, yaml)

	targets, err := LoadTargetsFile(path)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "web", targets[0].Name)
	assert.Equal(t, `^web-.*\.service$`, targets[0].Filter)
	assert.Equal(t, "postgresql.service", targets[1].Unit)
	assert.Equal(t, 20*time.Second, targets[1].Timeout)
}

func TestLoadTargetsFile_EmptyPath(t *testing.T) {
	targets, err := LoadTargetsFile("")
	require.NoError(t, err)
	assert.Nil(t, targets)
}

func TestLoadTargetsFile_FileNotFound(t *testing.T) {
	_, err := LoadTargetsFile("/nonexistent/path/targets.yaml")
	require.Error(t, err)
}

func TestLoadTargetsFile_InvalidYAML(t *testing.T) {
	path := writeTargetsFile(t, "targets: [")
	_, err := LoadTargetsFile(path)
	require.Error(t, err)
}

func TestLoadTargetsFile_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "no targets",
			yaml: "targets: []",
		},
		{
			name: "missing name",
			yaml: `targets:
  - filter: .*\.service$
`,
		},
		{
			name: "duplicate names",
			yaml: `targets:
  - name: web
    filter: ^web-
  - name: web
    unit: nginx.service
`,
		},
		{
			name: "unit and filter together",
			yaml: `targets:
  - name: web
    unit: nginx.service
    filter: ^web-
`,
		},
		{
			name: "neither unit nor filter",
			yaml: `targets:
  - name: web
`,
		},
		{
			name: "invalid filter",
			yaml: `targets:
  - name: web
    filter: "([unclosed"
`,
		},
		{
			name: "negative timeout",
			yaml: `targets:
  - name: web
    unit: nginx.service
    timeout: -5s
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTargetsFile(t, tc.yaml)
			_, err := LoadTargetsFile(path)
			assert.Error(t, err)
		})
	}
}

func writeTargetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
