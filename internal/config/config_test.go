package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpress/prerender/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `
debug: false
server:
  address: ":8090"
upstream:
  url: "http://localhost:8080"
render:
  caching_enabled: true
site:
  public_origin: "https://quillpress.example"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Address)
	assert.Equal(t, "http://localhost:8080", cfg.Upstream.URL)
	assert.True(t, cfg.Render.CachingEnabled)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Render.PrimaryTTL)
	assert.Equal(t, 10*time.Minute, cfg.Render.RelatedTTL)
	assert.Equal(t, 4, cfg.Render.RelatedLimit)
	assert.Equal(t, 3*time.Second, cfg.Render.FetchDeadline)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.NotEmpty(t, cfg.Site.SiteName)
	assert.NotEmpty(t, cfg.Site.DefaultShareImage)
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing upstream url",
			body: `
site:
  public_origin: "https://quillpress.example"
`,
			wantErr: "upstream.url is required",
		},
		{
			name: "missing public origin",
			body: `
upstream:
  url: "http://localhost:8080"
`,
			wantErr: "site.public_origin is required",
		},
		{
			name: "relative public origin",
			body: `
upstream:
  url: "http://localhost:8080"
site:
  public_origin: "/just/a/path"
`,
			wantErr: "absolute URL",
		},
		{
			name: "negative ttl",
			body: `
upstream:
  url: "http://localhost:8080"
render:
  primary_ttl: -5m
site:
  public_origin: "https://quillpress.example"
`,
			wantErr: "render.primary_ttl",
		},
		{
			name: "negative fetch deadline",
			body: `
upstream:
  url: "http://localhost:8080"
render:
  fetch_deadline: -1s
site:
  public_origin: "https://quillpress.example"
`,
			wantErr: "render.fetch_deadline",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://upstream.test:9000")
	t.Setenv("RENDER_CACHING", "yes")
	t.Setenv("APP_DEBUG", "1")
	t.Setenv("PRERENDER_PORT", "9999")

	cfg, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://upstream.test:9000", cfg.Upstream.URL)
	assert.True(t, cfg.Render.CachingEnabled)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9999", cfg.Server.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}
