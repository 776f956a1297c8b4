package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"
	"time"
)

const testIssuer = "https://127.0.0.1:8000"

// apps de prueba: nombre => secreto
type fakeApps map[string]string

func (f fakeApps) Authenticate(name, secret string) bool {
	s, ok := f[name]
	return ok && s == secret
}

func (f fakeApps) Has(name string) bool {
	_, ok := f[name]
	return ok
}

var (
	keyOnce sync.Once
	keyA    *rsa.PrivateKey
	keyB    *rsa.PrivateKey
)

// testKeys devuelve dos pares RSA distintos, generados una vez por paquete.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		if keyA, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if keyB, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return keyA, keyB
}

func mustKeyMaterial(t *testing.T, priv *rsa.PrivateKey, kid string) *KeyMaterial {
	t.Helper()
	km, err := NewKeyMaterialFromKeys(priv, nil, kid)
	if err != nil {
		t.Fatalf("key material: %v", err)
	}
	return km
}

func privatePEM(t *testing.T, k *rsa.PrivateKey) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)})
}

func publicPEM(t *testing.T, k *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(k)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
