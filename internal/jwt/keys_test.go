package jwt

import (
	"crypto/rsa"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyMaterial_FromPEM(t *testing.T) {
	priv, _ := testKeys(t)
	km, err := NewKeyMaterial(privatePEM(t, priv), publicPEM(t, &priv.PublicKey), "excel-reorder")
	require.NoError(t, err)
	assert.True(t, km.HasSigningKey())
	assert.True(t, km.HasVerificationKey())
	assert.Equal(t, "excel-reorder", km.KeyID())
	assert.Equal(t, "RS256", km.Algorithm())

	_, err = NewKeyMaterial([]byte("not a pem"), nil, "k")
	assert.Error(t, err)
	_, err = NewKeyMaterial(nil, []byte("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"), "k")
	assert.Error(t, err)
}

func TestNewKeyMaterial_PublicOnly(t *testing.T) {
	priv, _ := testKeys(t)
	km, err := NewKeyMaterial(nil, publicPEM(t, &priv.PublicKey), "k")
	require.NoError(t, err)
	assert.False(t, km.HasSigningKey())
	assert.True(t, km.HasVerificationKey())

	_, err = km.Sign(&Claims{})
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestLoadKeyMaterial(t *testing.T) {
	priv, _ := testKeys(t)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, privatePEM(t, priv), 0o600))
	require.NoError(t, os.WriteFile(pubPath, publicPEM(t, &priv.PublicKey), 0o600))

	km := LoadKeyMaterial(KeySource{PrivateKeyPath: privPath, PublicKeyPath: pubPath, KeyID: "excel-reorder"})
	assert.True(t, km.HasSigningKey())
	assert.True(t, km.HasVerificationKey())

	t.Run("missing files degrade", func(t *testing.T) {
		km := LoadKeyMaterial(KeySource{
			PrivateKeyPath: filepath.Join(dir, "nope.pem"),
			PublicKeyPath:  filepath.Join(dir, "nope2.pem"),
			KeyID:          "k",
		})
		assert.False(t, km.HasSigningKey())
		assert.False(t, km.HasVerificationKey())
		assert.Equal(t, "k", km.KeyID())
	})

	t.Run("garbage file degrades", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.pem")
		require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
		km := LoadKeyMaterial(KeySource{PrivateKeyPath: bad, PublicKeyPath: pubPath})
		assert.False(t, km.HasSigningKey())
		assert.True(t, km.HasVerificationKey())
	})
}

func TestJWKS_Empty(t *testing.T) {
	b, err := (&KeyMaterial{}).JWKSJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(b))

	var nilKM *KeyMaterial
	b, err = nilKM.JWKSJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(b))
}

func TestJWKS_PublishesVerificationKey(t *testing.T) {
	priv, _ := testKeys(t)
	km := mustKeyMaterial(t, priv, "excel-reorder")

	b, err := km.JWKSJSON()
	require.NoError(t, err)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, "RSA", doc.Keys[0]["kty"])
	assert.Equal(t, "excel-reorder", doc.Keys[0]["kid"])
	assert.Equal(t, "RS256", doc.Keys[0]["alg"])
	assert.Equal(t, "sig", doc.Keys[0]["use"])
	assert.NotEmpty(t, doc.Keys[0]["n"])
	assert.NotContains(t, doc.Keys[0], "d")

	// un relying party puede verificar con la clave publicada
	set, err := jwk.Parse(b)
	require.NoError(t, err)
	key, ok := set.LookupKeyID("excel-reorder")
	require.True(t, ok)
	var pub rsa.PublicKey
	require.NoError(t, key.Raw(&pub))

	published, err := NewKeyMaterialFromKeys(nil, &pub, "excel-reorder")
	require.NoError(t, err)
	tok, err := NewIssuer(testIssuer, km, fakeApps{"acme": "s3cret"}).IssueFor("acme", "s3cret")
	require.NoError(t, err)
	res := NewVerifier(testIssuer, published, fakeApps{"acme": "s3cret"}).Verify(tok.AccessToken)
	assert.Equal(t, OutcomeValid, res.Outcome, res.Detail)
}

func TestKeyID_Thumbprint(t *testing.T) {
	priv, other := testKeys(t)
	a1 := mustKeyMaterial(t, priv, KeyIDThumbprint)
	a2, err := NewKeyMaterial(nil, publicPEM(t, &priv.PublicKey), KeyIDThumbprint)
	require.NoError(t, err)
	b := mustKeyMaterial(t, other, KeyIDThumbprint)

	assert.NotEqual(t, KeyIDThumbprint, a1.KeyID())
	assert.Len(t, a1.KeyID(), 43) // sha256 en base64url sin padding
	assert.Equal(t, a1.KeyID(), a2.KeyID())
	assert.NotEqual(t, a1.KeyID(), b.KeyID())

	empty, err := NewKeyMaterial(nil, nil, KeyIDThumbprint)
	require.NoError(t, err)
	assert.Equal(t, "", empty.KeyID())
}
