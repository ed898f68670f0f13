package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/ranking"
	"github.com/timmy/shotrank/internal/service"
)

type fakeRanker struct {
	last service.RankRequest
	err  error
}

func (f *fakeRanker) RankImages(_ context.Context, req service.RankRequest) (*service.RankResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.RankResponse{
		Query:          req.Query,
		ScoringVersion: "test",
		Results:        []ranking.Result{{ImageID: "img-a", Score: 1.5}},
		Total:          1,
	}, nil
}

type fakeTagger struct {
	tags map[string][]domain.ImageTag
	err  error
}

func (f *fakeTagger) TagImage(ctx context.Context, imageID string) ([]domain.ImageTag, error) {
	return f.GetTags(ctx, imageID)
}

func (f *fakeTagger) GetTags(_ context.Context, imageID string) ([]domain.ImageTag, error) {
	if f.err != nil {
		return nil, f.err
	}
	tags, ok := f.tags[imageID]
	if !ok {
		return nil, service.ErrImageNotFound
	}
	return tags, nil
}

type fakeConcepts struct{}

func (fakeConcepts) ListConcepts(context.Context) ([]domain.Concept, error) {
	return []domain.Concept{
		{ID: "playful", Label: "playful", Embedding: domain.Vector{1, 0}},
		{ID: "serious", Label: "serious"},
	}, nil
}

func newTestRouter(ranker *fakeRanker, tagger *fakeTagger) http.Handler {
	return SetupRouter(Services{
		Ranker:         ranker,
		Tagger:         tagger,
		Concepts:       fakeConcepts{},
		ScoringVersion: "test",
	}, config.ServerConfig{
		Mode: "test",
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
	})
}

func serve(t *testing.T, h http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestRouter(&fakeRanker{}, &fakeTagger{}), http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["scoring_version"] != "test" {
		t.Errorf("scoring_version = %q", body["scoring_version"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	rec := serve(t, newTestRouter(&fakeRanker{}, &fakeTagger{}), http.MethodGet, "/health", nil,
		map[string]string{"X-Request-ID": "req-123"})
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		rankErr    error
		wantStatus int
		wantQuery  string
		wantTopK   int
	}{
		{name: "post", method: http.MethodPost, target: "/api/v1/rank", body: `{"query":"playful","top_k":5}`, wantStatus: http.StatusOK, wantQuery: "playful", wantTopK: 5},
		{name: "get", method: http.MethodGet, target: "/api/v1/rank?q=minimal&top_k=3", wantStatus: http.StatusOK, wantQuery: "minimal", wantTopK: 3},
		{name: "get missing q", method: http.MethodGet, target: "/api/v1/rank", wantStatus: http.StatusBadRequest},
		{name: "get bad top_k", method: http.MethodGet, target: "/api/v1/rank?q=a&top_k=x", wantStatus: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, target: "/api/v1/rank", body: `{"query":`, wantStatus: http.StatusBadRequest},
		{name: "negative top_k", method: http.MethodPost, target: "/api/v1/rank", body: `{"query":"a","top_k":-1}`, wantStatus: http.StatusBadRequest},
		{name: "empty query", method: http.MethodPost, target: "/api/v1/rank", body: `{"query":" "}`, rankErr: service.ErrEmptyQuery, wantStatus: http.StatusBadRequest},
		{name: "service failure", method: http.MethodPost, target: "/api/v1/rank", body: `{"query":"a"}`, rankErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker := &fakeRanker{err: tt.rankErr}
			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			rec := serve(t, newTestRouter(ranker, &fakeTagger{}), tt.method, tt.target, body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if ranker.last.Query != tt.wantQuery || ranker.last.TopK != tt.wantTopK {
				t.Errorf("request = %+v", ranker.last)
			}
			var resp service.RankResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Results) != 1 || resp.Results[0].ImageID != "img-a" {
				t.Errorf("results = %+v", resp.Results)
			}
		})
	}
}

func TestTags(t *testing.T) {
	tagger := &fakeTagger{tags: map[string][]domain.ImageTag{
		"img-a": {{ImageID: "img-a", ConceptID: "playful", Score: 0.31}},
		"img-b": nil,
	}}

	tests := []struct {
		name       string
		method     string
		target     string
		tagger     *fakeTagger
		wantStatus int
		wantTotal  int
	}{
		{name: "get", method: http.MethodGet, target: "/api/v1/images/img-a/tags", tagger: tagger, wantStatus: http.StatusOK, wantTotal: 1},
		{name: "retag", method: http.MethodPost, target: "/api/v1/images/img-a/tags", tagger: tagger, wantStatus: http.StatusOK, wantTotal: 1},
		{name: "untagged", method: http.MethodGet, target: "/api/v1/images/img-b/tags", tagger: tagger, wantStatus: http.StatusOK, wantTotal: 0},
		{name: "unknown image", method: http.MethodGet, target: "/api/v1/images/missing/tags", tagger: tagger, wantStatus: http.StatusNotFound},
		{name: "no concepts", method: http.MethodPost, target: "/api/v1/images/img-a/tags", tagger: &fakeTagger{err: service.ErrNoConcepts}, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newTestRouter(&fakeRanker{}, tt.tagger), tt.method, tt.target, nil, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Tags  []domain.ImageTag `json:"tags"`
				Total int               `json:"total"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Total != tt.wantTotal || body.Tags == nil {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestConcepts(t *testing.T) {
	rec := serve(t, newTestRouter(&fakeRanker{}, &fakeTagger{}), http.MethodGet, "/api/v1/concepts", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Concepts []struct {
			ID       string `json:"id"`
			Embedded bool   `json:"embedded"`
		} `json:"concepts"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || !body.Concepts[0].Embedded || body.Concepts[1].Embedded {
		t.Errorf("body = %+v", body)
	}
}

func TestCORS(t *testing.T) {
	h := newTestRouter(&fakeRanker{}, &fakeTagger{})

	rec := serve(t, h, http.MethodOptions, "/api/v1/rank", nil, map[string]string{"Origin": "https://app.example.com"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	rec = serve(t, h, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://evil.example.com"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestRankFailureEchoesRequestID(t *testing.T) {
	h := newTestRouter(&fakeRanker{err: errors.New("store offline")}, &fakeTagger{})
	rec := serve(t, h, http.MethodPost, "/api/v1/rank", []byte(`{"query":"cozy"}`),
		map[string]string{"X-Request-ID": "req-500"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["request_id"] != "req-500" {
		t.Errorf("request_id = %q, want req-500", body["request_id"])
	}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthReportsDatabaseOutage(t *testing.T) {
	h := SetupRouter(Services{
		Ranker:         &fakeRanker{},
		Tagger:         &fakeTagger{},
		Concepts:       fakeConcepts{},
		Database:       fakePinger{err: errors.New("connection refused")},
		ScoringVersion: "test",
	}, config.ServerConfig{Mode: "test"})

	rec := serve(t, h, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status field = %q", body["status"])
	}
}
