package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/flagx"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, "imgs/uploads/", c.UploadDir)
	assert.Equal(t, 3, c.DirRetries)
	assert.Equal(t, time.Second, c.BackoffBase)
	assert.Equal(t, 200*time.Millisecond, c.DeleteDelay)
	assert.Equal(t, 30*24*time.Hour, c.GitHubSessionTTL)
	assert.Equal(t, 5*time.Minute, c.AuthTimeout)
	assert.False(t, c.Compress)
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":   "https://pics.example",
		"compress":     true,
		"dir_retries":  5,
		"settle_delay": "2s",
		"delete_delay": 1000000,
	})

	c := defaults()
	parseJson(c, []string{"ls", "--config", path})

	want := defaults()
	want.ServerURL = "https://pics.example"
	want.Compress = true
	want.DirRetries = 5
	want.SettleDelay = 2 * time.Second
	want.DeleteDelay = time.Millisecond
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseJson_NoFile(t *testing.T) {
	c := defaults()
	parseJson(c, []string{"ls", "imgs"})
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestParseJson_Invalid(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))

	require.Panics(t, func() { parseJson(defaults(), []string{"-c", bad}) })
	require.Panics(t, func() { parseJson(defaults(), []string{"-c", bad + ".missing"}) })
}

func TestParseEnv(t *testing.T) {
	orig := lookupEnv
	t.Cleanup(func() { lookupEnv = orig })

	vals := map[string]string{
		"REPOPIX_SERVER":       "https://env.example",
		"REPOPIX_UPLOAD_DIR":   "imgs/env/",
		"REPOPIX_COMPRESS":     "1",
		"REPOPIX_AUTH_TIMEOUT": "90s",
	}
	lookupEnv = func() flagx.Env {
		return flagx.Env{Lookup: func(k string) (string, bool) {
			v, ok := vals[k]
			return v, ok
		}}
	}

	c := defaults()
	parseEnv(c)
	assert.Equal(t, "https://env.example", c.ServerURL)
	assert.Equal(t, "imgs/env/", c.UploadDir)
	assert.True(t, c.Compress)
	assert.Equal(t, 90*time.Second, c.AuthTimeout)
	assert.Equal(t, "repopix.db", c.DBPath)

	vals["REPOPIX_COMPRESS"] = "maybe"
	require.Panics(t, func() { parseEnv(defaults()) })
}

func TestBindFlags(t *testing.T) {
	c := defaults()
	c.ServerURL = "https://from-json.example"

	fs := pflag.NewFlagSet("repopix", pflag.ContinueOnError)
	BindFlags(fs, c)
	require.NoError(t, fs.Parse([]string{"-z", "--upload-dir", "imgs/cli/", "-c", "ignored.json"}))

	assert.Equal(t, "https://from-json.example", c.ServerURL, "unset flags keep earlier layers")
	assert.Equal(t, "imgs/cli/", c.UploadDir)
	assert.True(t, c.Compress)
	assert.False(t, c.Verbose)
}
