package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/rate"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler, mk("A"), nil, mk("B"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestWithCORS(t *testing.T) {
	h := Chain(okHandler, WithCORS([]string{"https://app.example/"}))

	pre := httptest.NewRequest(http.MethodOptions, "/issue-token", nil)
	pre.Header.Set("Origin", "https://app.example")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeCode(t, rec)["code"])
}

func TestWithRateLimit(t *testing.T) {
	limited := 0
	h := Chain(okHandler, WithRateLimit(RateLimitConfig{
		Limiter:   rate.NewMemoryLimiter(2, time.Hour),
		OnLimited: func(*http.Request) { limited++ },
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/issue-token", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	second := send("10.0.0.1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeCode(t, third)["code"])
	assert.Equal(t, 1, limited)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestWithRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	h := Chain(okHandler, WithRateLimit(RateLimitConfig{
		Limiter: rate.NewMemoryLimiter(2, time.Hour),
	}))

	codes := make([]int, 0, 6)
	for i := 1; i <= 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/issue-token", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429, 429, 429, 429}, codes)
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 "})
	require.NoError(t, err)

	cases := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{"untrusted peer ignores header", "203.0.113.7:1", []string{"1.2.3.4"}, "203.0.113.7"},
		{"trusted peer without header", "10.1.2.3:1", nil, "10.1.2.3"},
		{"trusted peer uses rightmost untrusted hop", "10.1.2.3:1", []string{"6.6.6.6, 198.51.100.9, 10.9.9.9"}, "198.51.100.9"},
		{"multiple header lines", "192.168.1.10:1", []string{"6.6.6.6", "198.51.100.9"}, "198.51.100.9"},
		{"all hops trusted", "10.1.2.3:1", []string{"10.2.2.2"}, "10.2.2.2"},
		{"garbage hop", "10.1.2.3:1", []string{"not-an-ip"}, "10.1.2.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tc.want, tp.ClientIP(req))
		})
	}

	var none TrustedProxies
	req := httptest.NewRequest(http.MethodGet, "/issue-token", nil)
	req.RemoteAddr = "10.1.2.3:1"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "10.1.2.3|/issue-token", none.RateKey(req))
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/99"})
	require.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	require.Error(t, err)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, errors.New("redis down")
}

func TestWithRateLimit_FailOpen(t *testing.T) {
	h := Chain(okHandler, WithRateLimit(RateLimitConfig{Limiter: failingLimiter{}}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/issue-token", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// verifier de prueba: devuelve siempre el mismo resultado
type stubVerifier struct {
	res  jwtx.Verification
	seen string
}

func (s *stubVerifier) Verify(raw string) jwtx.Verification {
	s.seen = raw
	return s.res
}

type countingObserver map[string]int

func (c countingObserver) ObserveVerification(o string) { c[o]++ }

func TestRequireAppToken(t *testing.T) {
	claims := &jwtx.Claims{AppName: "acme", RegisteredClaims: jwtv5.RegisteredClaims{Subject: "acme"}}

	cases := []struct {
		name       string
		header     string
		res        jwtx.Verification
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"missing header", "", jwtx.Verification{}, 401, "TOKEN_MISSING", "Not authenticated"},
		{"wrong scheme", "Basic abc", jwtx.Verification{}, 401, "TOKEN_MISSING", "Not authenticated"},
		{"expired", "Bearer t", jwtx.Verification{Outcome: jwtx.OutcomeExpired}, 401, "TOKEN_EXPIRED", "Token has expired"},
		{"invalid", "Bearer t", jwtx.Verification{Outcome: jwtx.OutcomeInvalid, Detail: "token is malformed"}, 401, "TOKEN_INVALID", "Invalid token: token is malformed"},
		{"audience", "Bearer t", jwtx.Verification{Outcome: jwtx.OutcomeAudienceMismatch, Detail: "stranger"}, 401, "AUDIENCE_MISMATCH", "Invalid audience: stranger"},
		{"failed", "Bearer t", jwtx.Verification{Outcome: jwtx.OutcomeFailed}, 401, "VERIFICATION_FAILED", "Token verification failed"},
		{"no public key", "Bearer t", jwtx.Verification{Outcome: jwtx.OutcomeConfigError}, 500, "VERIFICATION_KEY_MISSING", "Server configuration error: Missing public key"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := Chain(okHandler, RequireAppToken(&stubVerifier{res: c.res}, nil))
			req := httptest.NewRequest(http.MethodGet, "/secure-data", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, c.wantStatus, rec.Code)
			body := decodeCode(t, rec)
			assert.Equal(t, c.wantCode, body["code"])
			assert.Equal(t, c.wantMsg, body["message"])
			if c.wantStatus == http.StatusUnauthorized {
				assert.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
			}
		})
	}

	t.Run("valid puts claims in context", func(t *testing.T) {
		stub := &stubVerifier{res: jwtx.Verification{Outcome: jwtx.OutcomeValid, Claims: claims}}
		obs := countingObserver{}
		var got *jwtx.Claims
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetClaims(r.Context())
		}), RequireAppToken(stub, obs))

		req := httptest.NewRequest(http.MethodGet, "/secure-data", nil)
		req.Header.Set("Authorization", "bearer   the.jwt.value ")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "the.jwt.value", stub.seen)
		assert.Same(t, claims, got)
		assert.Equal(t, 1, obs["valid"])
	})
}
