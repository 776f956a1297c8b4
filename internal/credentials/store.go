// Package credentials mantiene el registro de aplicaciones habilitadas (app_name => secreto).
// Se carga una vez al arrancar y después es de solo lectura.
package credentials

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dropDatabas3/apptoken/internal/observability/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Store es inmutable: Merge devuelve un Store nuevo.
type Store struct {
	apps map[string]string
}

// Load lee un objeto JSON o YAML {appName: secret}. Nunca falla: archivo ausente o
// malformado => store vacío + warning (la emisión responde Unauthorized a todo).
func Load(path string) *Store {
	log := logger.L().With(logger.Component("credentials"))
	s, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("credentials file not found, no applications loaded", zap.String("path", path))
		} else {
			log.Warn("credentials file unusable, no applications loaded", zap.String("path", path), logger.Err(err))
		}
		return FromMap(nil)
	}
	log.Info("credentials loaded", zap.String("path", path), logger.Count(s.Len()))
	return s
}

// LoadFile es la variante estricta de Load.
func LoadFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse acepta JSON (que es YAML válido) o YAML. Los valores tienen que ser strings.
func Parse(b []byte) (*Store, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("credentials: parse: %w", err)
	}
	apps := make(map[string]string, len(raw))
	for name, v := range raw {
		secret, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("credentials: secret for %q must be a string", name)
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		apps[name] = secret
	}
	return &Store{apps: apps}, nil
}

// FromMap copia m; el caller puede seguir usando su mapa.
func FromMap(m map[string]string) *Store {
	apps := make(map[string]string, len(m))
	for k, v := range m {
		apps[k] = v
	}
	return &Store{apps: apps}
}

// Merge devuelve un Store con las entradas de over pisando las de s.
func (s *Store) Merge(over map[string]string) *Store {
	var base map[string]string
	if s != nil {
		base = s.apps
	}
	out := FromMap(base)
	for k, v := range over {
		out.apps[k] = v
	}
	return out
}

func (s *Store) Lookup(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.apps[name]
	return v, ok
}

func (s *Store) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Authenticate compara el secreto presentado. Si el guardado es un hash bcrypt se usa
// bcrypt; si no, comparación exacta en tiempo constante.
func (s *Store) Authenticate(name, secret string) bool {
	stored, ok := s.Lookup(name)
	if !ok {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// Names devuelve los nombres ordenados.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.apps))
	for k := range s.apps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.apps)
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
