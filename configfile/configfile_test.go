package configfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	factory "github.com/goliatone/go-factory"
)

func serverFactory(t *testing.T) *factory.Factory {
	t.Helper()
	f, err := factory.New(
		factory.Opt("name", "svc"),
		factory.Sec("server",
			factory.Opt("host", "localhost"),
			factory.Opt("port", 8080),
		),
	)
	require.NoError(t, err)
	return f
}

func TestLoadYAML(t *testing.T) {
	input := `
name: billing
server:
  port: 9090
`
	values, err := LoadYAML(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "billing", values["name"])
	server, ok := values["server"].(map[string]any)
	require.True(t, ok, "expected nested mapping, got %T", values["server"])
	assert.Equal(t, 9090, server["port"])
}

func TestLoadYAMLEmptyDocument(t *testing.T) {
	values, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestLoadYAMLRejectsNonMapping(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("- a\n- b\n"))
	require.Error(t, err)
}

func TestLoadTOML(t *testing.T) {
	input := `
name = "billing"

[server]
port = 9090
`
	values, err := LoadTOML(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "billing", values["name"])
	server, ok := values["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(9090), server["port"])
}

func TestCreateYAMLResolvesThroughFactory(t *testing.T) {
	f := serverFactory(t)
	tree, err := CreateYAML(f, strings.NewReader("server:\n  port: 9090\n"))
	require.NoError(t, err)

	server, err := tree.Section("server")
	require.NoError(t, err)
	port, err := server.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)
	host, err := server.GetString("host")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
}

func TestCreateYAMLRejectsUnknownKeys(t *testing.T) {
	f := serverFactory(t)
	_, err := CreateYAML(f, strings.NewReader("typo: 1\n"))
	require.Error(t, err)

	tree, err := CreateYAML(f, strings.NewReader("typo: 1\n"), factory.Embedded())
	require.NoError(t, err)
	name, err := tree.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "svc", name)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	f := serverFactory(t)
	tree, err := CreateMutableYAML(f, strings.NewReader("name: billing\n"))
	require.NoError(t, err)
	require.NoError(t, tree.Set("name", "renamed"))

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, tree, false))
	assert.Contains(t, buf.String(), "renamed")
	assert.NotContains(t, buf.String(), "localhost", "defaults must not be exported")

	again, err := CreateYAML(f, &buf)
	require.NoError(t, err)
	name, err := again.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "renamed", name)
}

func TestTOMLFileRoundTrip(t *testing.T) {
	f := serverFactory(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	tree, err := f.CreateMutable(nil)
	require.NoError(t, err)
	require.NoError(t, tree.Set("name", "saved"))

	require.NoError(t, SaveTOMLFile(path, tree, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	values, err := LoadTOMLFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", values["name"])

	restored, err := f.Create(values)
	require.NoError(t, err)
	name, err := restored.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "saved", name)
}

func TestYAMLFileRoundTrip(t *testing.T) {
	f := serverFactory(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	tree, err := f.Create(map[string]any{"server": map[string]any{"port": 7070}})
	require.NoError(t, err)
	require.NoError(t, SaveYAMLFile(path, tree, true))

	values, err := LoadYAMLFile(path)
	require.NoError(t, err)
	server, ok := values["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 7070, server["port"])
	assert.Equal(t, "localhost", server["host"], "withDefaults export includes defaults")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	_, err = LoadTOMLFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
