package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, c.Server.Addr)
	assert.Equal(t, DefaultIssuer, c.JWT.Issuer)
	assert.Equal(t, 8*time.Hour, c.TokenTTL())
	assert.Equal(t, DefaultKeyID, c.JWT.KeyID)
	assert.Equal(t, []string{"*"}, c.Server.CORSAllowedOrigins)
	assert.True(t, c.AcceptServiceAudience())
	assert.True(t, c.RateEnabled())
	assert.Equal(t, time.Minute, c.RateWindow())
}

func TestLoad_YAMLAndRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
app:
  app_env: prod
server:
  addr: ":9090"
jwt:
  issuer: https://auth.example
  ttl: 1h
  key_id: thumbprint
  private_key_path: keys/private.pem
  public_key_path: /etc/apptoken/public.pem
  accept_service_audience: false
apps:
  file: apps.yaml
  inline:
    acme: s3cret
rate:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "https://auth.example", c.JWT.Issuer)
	assert.Equal(t, time.Hour, c.TokenTTL())
	assert.Equal(t, "thumbprint", c.JWT.KeyID)
	assert.Equal(t, filepath.Join(dir, "keys", "private.pem"), c.JWT.PrivateKeyPath)
	assert.Equal(t, "/etc/apptoken/public.pem", c.JWT.PublicKeyPath)
	assert.Equal(t, filepath.Join(dir, "apps.yaml"), c.Apps.File)
	assert.Equal(t, map[string]string{"acme": "s3cret"}, c.Apps.Inline)
	assert.False(t, c.AcceptServiceAudience())
	assert.False(t, c.RateEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("JWT_ISSUER", "https://issuer.example/")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("JWT_ACCEPT_SERVICE_AUDIENCE", "false")
	t.Setenv("APP_CREDENTIALS", "acme=s3cret;beta=pa=ss ; broken")
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")
	t.Setenv("RATE_LIMIT", "5")
	t.Setenv("RATE_REDIS_ADDR", "localhost:6379")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.CORSAllowedOrigins)
	assert.Equal(t, "https://issuer.example", c.JWT.Issuer)
	assert.Equal(t, 30*time.Minute, c.TokenTTL())
	assert.False(t, c.AcceptServiceAudience())
	assert.Equal(t, map[string]string{"acme": "s3cret", "beta": "pa=ss"}, c.Apps.Inline)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, c.Server.TrustedProxies)
	assert.Equal(t, 5, c.Rate.Limit)
	assert.Equal(t, "localhost:6379", c.Rate.Redis.Addr)
}

func TestLoad_InvalidTTL(t *testing.T) {
	cases := []string{"banana", "-1h", "1500ms"}
	for _, ttl := range cases {
		t.Run(ttl, func(t *testing.T) {
			t.Setenv("JWT_TTL", ttl)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidTrustedProxy(t *testing.T) {
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8,proxy.local")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseKVList(t *testing.T) {
	got := parseKVList(" a=1 ; b = 2;;=x;c=", ";")
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
	assert.Empty(t, parseKVList("", ";"))
}
