package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/store"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/trust"
)

type fakeAnalyzer struct {
	mode core.Mode
	err  error
	last *core.DeepScanReport
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, email core.EmailData) (*core.Verdict, error) {
	return a.AnalyzeMode(ctx, email, "")
}

func (a *fakeAnalyzer) AnalyzeMode(_ context.Context, email core.EmailData, mode core.Mode) (*core.Verdict, error) {
	a.mode = mode
	if a.err != nil {
		return nil, a.err
	}
	return &core.Verdict{
		Result:  core.AnalysisResult{Score: 55, Reasons: []string{"Risky TLD: .xyz"}},
		Mode:    core.ModeFull,
		Flagged: email.Subject != "",
	}, nil
}

func (a *fakeAnalyzer) LastDeepScan() *core.DeepScanReport { return a.last }

type failingTrust struct{ TrustAdmin }

func (failingTrust) UserLists(context.Context) (core.TrustLists, error) {
	return nil, store.ErrUnavailable
}

func (failingTrust) AddIgnoredSender(context.Context, string) error {
	return store.ErrUnavailable
}

func newTestServer(t *testing.T, a Analyzer, admin TrustAdmin, cfg config.HTTPConfig) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(a, admin, func() (string, bool) { return "builtin", false }, cfg, false, zap.NewNop())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func newManager() *trust.Manager {
	return trust.NewManager(store.NewMemoryStore(nil), nil, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze(t *testing.T) {
	a := &fakeAnalyzer{}
	s := newTestServer(t, a, newManager(), config.HTTPConfig{RatePerMinute: 100})

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/analyze", core.EmailData{Subject: "Act now"})
	require.Equal(t, http.StatusOK, rec.Code)

	var v core.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.True(t, v.Flagged)
	assert.Equal(t, 55, v.Result.Score)
	assert.Equal(t, core.Mode(""), a.mode)

	rec = do(t, s.Router(), http.MethodPost, "/api/v1/analyze?mode=light", core.EmailData{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ModeLight, a.mode)

	rec = do(t, s.Router(), http.MethodPost, "/api/v1/analyze?mode=deep", core.EmailData{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_Failure(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{err: errors.New("canceled")}, newManager(), config.HTTPConfig{})

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/analyze", core.EmailData{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIgnoredLifecycle(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, newManager(), config.HTTPConfig{})
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/ignored", map[string]string{"sender": "Promo@Shop.example"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/trust?sender=promo@shop.example", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decision core.TrustDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, core.TrustDecision{Trusted: true, Source: core.SourceIgnoredList, Level: core.LevelUser}, decision)

	rec = do(t, h, http.MethodGet, "/api/v1/ignored", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lists map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lists))
	assert.Equal(t, []string{"promo@shop.example"}, lists["ignoredSenders"])

	rec = do(t, h, http.MethodDelete, "/api/v1/ignored/promo@shop.example", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/ignored", map[string]string{"sender": "a@b.example"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/ignored", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/ignored", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lists))
	assert.Empty(t, lists["ignoredSenders"])
}

func TestIgnored_Errors(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, newManager(), config.HTTPConfig{})

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/ignored", map[string]string{"sender": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Router(), http.MethodPost, "/api/v1/ignored", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Router(), http.MethodGet, "/api/v1/trust", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	down := newTestServer(t, &fakeAnalyzer{}, failingTrust{}, config.HTTPConfig{})
	rec = do(t, down.Router(), http.MethodGet, "/api/v1/ignored", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, down.Router(), http.MethodPost, "/api/v1/ignored", map[string]string{"sender": "a@b.example"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLastDeepScan(t *testing.T) {
	a := &fakeAnalyzer{}
	s := newTestServer(t, a, newManager(), config.HTTPConfig{})

	rec := do(t, s.Router(), http.MethodGet, "/api/v1/deep-scan/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	a.last = &core.DeepScanReport{Provider: "urlhaus", Malicious: true, Score: 100}
	rec = do(t, s.Router(), http.MethodGet, "/api/v1/deep-scan/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider":"urlhaus"`)
}

func TestDevToken(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, newManager(), config.HTTPConfig{DevToken: "s3cret"})

	rec := do(t, s.Router(), http.MethodGet, "/api/v1/ignored", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s.Router(), http.MethodGet, "/api/v1/ignored", nil, "X-Dev-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s.Router(), http.MethodGet, "/api/v1/ignored", nil, "X-Dev-Token", "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","rules":"builtin","degraded":false}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, newManager(), config.HTTPConfig{RatePerMinute: 4})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, s.Router(), http.MethodPost, "/api/v1/analyze", core.EmailData{}).Code)
	}
	// analyze gets half the global budget
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/analyze", core.EmailData{})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProcessEmail(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, newManager(), config.HTTPConfig{})

	v, err := s.ProcessEmail(context.Background(), &core.EmailData{Subject: "x"})
	require.NoError(t, err)
	assert.True(t, v.Flagged)

	_, err = s.ProcessEmail(context.Background(), nil)
	assert.Error(t, err)
}
