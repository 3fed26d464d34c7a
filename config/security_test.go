package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.json")))
	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.yaml")))
	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.YML")))

	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath(filepath.Join(dir, "a.ini")))
	assert.Error(t, validateConfigPath("../../etc/passwd.json"))
	assert.Error(t, validateConfigPath("/"+strings.Repeat("a", maxPathLen)+".json"))
}

func TestSafeReadFile_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.json")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(maxConfigSize+1))
	require.NoError(t, f.Close())

	_, err = safeReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, safeWriteFile(filepath.Join(dir, "x.txt"), []byte("{}")))
	assert.Error(t, safeWriteFile(filepath.Join(dir, "x.json"), make([]byte, maxConfigSize+1)))
	assert.NoError(t, safeWriteFile(filepath.Join(dir, "x.json"), []byte("{}")))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a":[{"b":"}}}]]"}]}`)))
	assert.NoError(t, validateJSONDepth([]byte(`{"a":"\"{"}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a":1}}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a":[1}`+"")))
	assert.Error(t, validateJSONDepth([]byte(strings.Repeat("[", maxJSONDepth+1))))
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("K", ""))
	assert.NoError(t, validateEnvVar("K", "value"))
	assert.Error(t, validateEnvVar("K", "a\x00b"))
	assert.Error(t, validateEnvVar("K", strings.Repeat("x", maxEnvVarLen+1)))
}
