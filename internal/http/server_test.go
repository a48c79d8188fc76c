package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/answerd/internal/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResponder struct {
	resp responder.Response
	err  error
	last responder.Request
}

func (f *fakeResponder) Respond(ctx context.Context, req responder.Request) (responder.Response, error) {
	f.last = req
	return f.resp, f.err
}

func newTestServer(t *testing.T, resp *fakeResponder) *Server {
	t.Helper()
	server, err := NewServer(resp, zap.NewNop(), nil)
	require.NoError(t, err)
	return server
}

func doRequest(server *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), nil)
	assert.Error(t, err)

	_, err = NewServer(&fakeResponder{}, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &fakeResponder{})

	rec := doRequest(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestMetricsExposed(t *testing.T) {
	server := newTestServer(t, &fakeResponder{})

	rec := doRequest(server, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRespondSuccess(t *testing.T) {
	fake := &fakeResponder{resp: responder.Response{
		Text:             "Refunds are accepted within 30 days.",
		Status:           responder.StatusSuccess,
		ContextDocuments: 3,
		PerCollection:    map[string]int{"docs_main": 3},
		PerDomain:        map[string]int{"documents": 3},
	}}
	server := newTestServer(t, fake)

	rec := doRequest(server, http.MethodPost, "/api/v1/respond", `{
		"query": "what is the refund policy",
		"task_type": "document question",
		"metadata": {"domain": "documents"},
		"language": "en"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body RespondResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Refunds are accepted within 30 days.", body.Text)
	assert.Equal(t, 3, body.ContextDocuments)
	assert.Equal(t, map[string]int{"docs_main": 3}, body.PerCollection)

	assert.Equal(t, "what is the refund policy", fake.last.Query)
	assert.Equal(t, "document question", fake.last.TaskType)
	assert.Equal(t, "en", fake.last.Language)
	assert.Equal(t, map[string]interface{}{"domain": "documents"}, fake.last.Metadata)
}

func TestRespondGuardrailOutcomeIs200(t *testing.T) {
	fake := &fakeResponder{resp: responder.Response{
		Status:     responder.StatusGuardrail,
		MessageKey: "responder.guardrail.policy_conflict",
		Detail:     map[string]interface{}{"policies": []interface{}{"A", "B"}},
	}}
	server := newTestServer(t, fake)

	rec := doRequest(server, http.MethodPost, "/api/v1/respond", `{"query": "q"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body RespondResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "guardrail", body.Status)
	assert.Equal(t, "responder.guardrail.policy_conflict", body.MessageKey)
	assert.Empty(t, body.Text)
}

func TestRespondMissingQuery(t *testing.T) {
	server := newTestServer(t, &fakeResponder{})

	rec := doRequest(server, http.MethodPost, "/api/v1/respond", `{"task_type": "question"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondInvalidBody(t *testing.T) {
	server := newTestServer(t, &fakeResponder{})

	rec := doRequest(server, http.MethodPost, "/api/v1/respond", `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondConfigFailureIs500(t *testing.T) {
	fake := &fakeResponder{
		resp: responder.Response{Status: responder.StatusError},
		err:  errors.New("preparing registry: embedder unavailable"),
	}
	server := newTestServer(t, fake)

	rec := doRequest(server, http.MethodPost, "/api/v1/respond", `{"query": "q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
