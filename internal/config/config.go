package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults: issuer local y TTL de 8h.
const (
	DefaultAddr           = "127.0.0.1:8000"
	DefaultIssuer         = "https://127.0.0.1:8000"
	DefaultTokenTTL       = 8 * time.Hour
	DefaultKeyID          = "excel-reorder"
	DefaultPrivateKeyPath = "private.pem"
	DefaultPublicKeyPath  = "public.pem"
	DefaultAppsFile       = "app.json"
)

type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// IPs o CIDRs de proxies desde los que se acepta X-Forwarded-For.
		TrustedProxies  []string      `yaml:"trusted_proxies"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	JWT struct {
		Issuer         string `yaml:"issuer"`
		TTL            string `yaml:"ttl"`
		KeyID          string `yaml:"key_id"` // "thumbprint" => RFC 7638 de la pública
		PrivateKeyPath string `yaml:"private_key_path"`
		PublicKeyPath  string `yaml:"public_key_path"`
		// Acepta aud == issuer además de los nombres de apps registradas.
		AcceptServiceAudience *bool `yaml:"accept_service_audience"`
	} `yaml:"jwt"`

	Apps struct {
		File string `yaml:"file"`
		// Pares inline (se mezclan sobre el archivo). Útil en dev.
		Inline map[string]string `yaml:"inline"`
	} `yaml:"apps"`

	Rate struct {
		Enabled *bool  `yaml:"enabled"`
		Limit   int    `yaml:"limit"`
		Window  string `yaml:"window"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`
}

// Load lee el YAML en path (si existe), aplica defaults y overrides por env.
// Un path vacío o inexistente no es error: se usa solo defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			c.resolvePaths(filepath.Dir(path))
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: defaults + env
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default devuelve una config solo con defaults (sin env). Usado por tests.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.CORSAllowedOrigins == nil {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = DefaultIssuer
	}
	if c.JWT.TTL == "" {
		c.JWT.TTL = DefaultTokenTTL.String()
	}
	if c.JWT.KeyID == "" {
		c.JWT.KeyID = DefaultKeyID
	}
	if c.JWT.PrivateKeyPath == "" {
		c.JWT.PrivateKeyPath = DefaultPrivateKeyPath
	}
	if c.JWT.PublicKeyPath == "" {
		c.JWT.PublicKeyPath = DefaultPublicKeyPath
	}
	if c.JWT.AcceptServiceAudience == nil {
		c.JWT.AcceptServiceAudience = boolPtr(true)
	}
	if c.Apps.File == "" {
		c.Apps.File = DefaultAppsFile
	}
	if c.Rate.Enabled == nil {
		c.Rate.Enabled = boolPtr(true)
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 20
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.Redis.Prefix == "" {
		c.Rate.Redis.Prefix = "apptoken:rl:"
	}
}

// resolvePaths vuelve absolutas (respecto del YAML) las rutas relativas de archivos.
func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(base, p))
	}
	c.JWT.PrivateKeyPath = abs(c.JWT.PrivateKeyPath)
	c.JWT.PublicKeyPath = abs(c.JWT.PublicKeyPath)
	c.Apps.File = abs(c.Apps.File)
}

// TokenTTL devuelve el TTL ya parseado (Validate garantiza que es válido).
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.TTL)
	if err != nil {
		return DefaultTokenTTL
	}
	return d
}

// RateWindow devuelve la ventana del rate limiter ya parseada.
func (c *Config) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.Rate.Window)
	if err != nil {
		return time.Minute
	}
	return d
}

func (c *Config) RateEnabled() bool {
	return c.Rate.Enabled != nil && *c.Rate.Enabled
}

func (c *Config) AcceptServiceAudience() bool {
	return c.JWT.AcceptServiceAudience != nil && *c.JWT.AcceptServiceAudience
}

// Validate chequea los valores críticos.
func (c *Config) Validate() error {
	ttl, err := time.ParseDuration(c.JWT.TTL)
	if err != nil {
		return fmt.Errorf("config: jwt.ttl: %w", err)
	}
	if ttl <= 0 || ttl%time.Second != 0 {
		return fmt.Errorf("config: jwt.ttl must be a positive whole number of seconds, got %s", c.JWT.TTL)
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("config: server.trusted_proxies: invalid IP or CIDR %q", p)
		}
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("config: jwt.issuer is required")
	}
	w, err := time.ParseDuration(c.Rate.Window)
	if err != nil {
		return fmt.Errorf("config: rate.window: %w", err)
	}
	if c.RateEnabled() && (c.Rate.Limit <= 0 || w <= 0) {
		return errors.New("config: rate.limit and rate.window must be positive when rate limiting is enabled")
	}
	return nil
}

func validProxy(p string) bool {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides: las variables de entorno pisan el YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvStr("JWT_TTL"); ok {
		c.JWT.TTL = v
	}
	if v, ok := getEnvStr("JWT_KEY_ID"); ok {
		c.JWT.KeyID = v
	}
	if v, ok := getEnvStr("JWT_PRIVATE_KEY_PATH"); ok {
		c.JWT.PrivateKeyPath = v
	}
	if v, ok := getEnvStr("JWT_PUBLIC_KEY_PATH"); ok {
		c.JWT.PublicKeyPath = v
	}
	if v, ok := getEnvBool("JWT_ACCEPT_SERVICE_AUDIENCE"); ok {
		c.JWT.AcceptServiceAudience = boolPtr(v)
	}

	// APPS
	if v, ok := getEnvStr("APPS_FILE"); ok {
		c.Apps.File = v
	}
	if m, ok := getEnvKVList("APP_CREDENTIALS", ";"); ok {
		if c.Apps.Inline == nil {
			c.Apps.Inline = make(map[string]string, len(m))
		}
		for k, v := range m {
			c.Apps.Inline[k] = v
		}
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = boolPtr(v)
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvStr("RATE_REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvInt("RATE_REDIS_DB"); ok {
		c.Rate.Redis.DB = v
	}
	if v, ok := getEnvStr("RATE_REDIS_PREFIX"); ok {
		c.Rate.Redis.Prefix = v
	}
}

// parse env of form "k1=v1<sep>k2=v2" into map
func parseKVList(s, sep string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}
	}
	items := strings.Split(s, sep)
	out := make(map[string]string, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		// split at first '=' (el secreto puede contener '=')
		if i := strings.IndexRune(it, '='); i > 0 {
			k := strings.TrimSpace(it[:i])
			v := strings.TrimSpace(it[i+1:])
			if k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out
}

func getEnvKVList(key, sep string) (map[string]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return parseKVList(s, sep), true
	}
	return nil, false
}

func boolPtr(b bool) *bool { return &b }
