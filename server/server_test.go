package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/dispatch"
	"github.com/poiesic/episodic/queue"
	queuemock "github.com/poiesic/episodic/queue/mock"
	"github.com/poiesic/episodic/status"
	"github.com/poiesic/episodic/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// askerFunc adapts a function to Asker.
type askerFunc func(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32) (*core.AnswerResult, error)

func (f askerFunc) Ask(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32) (*core.AnswerResult, error) {
	return f(ctx, question, filter, minRelevance)
}

// speakerFunc adapts a function to Speaker.
type speakerFunc func(ctx context.Context, result *core.AnswerResult)

func (f speakerFunc) Render(ctx context.Context, result *core.AnswerResult) {
	f(ctx, result)
}

type fixture struct {
	server  *Server
	tracker *status.Tracker
	queue   *queuemock.Queue
	stores  *badger.Stores
	asked   []float32
}

func setupTestServer(t *testing.T, speech Speaker) *fixture {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	tracker, err := status.NewTracker(stores.Statuses)
	require.NoError(t, err)
	q := queuemock.NewQueue()
	dispatcher, err := dispatch.NewDispatcher(stores.Catalog, tracker, q)
	require.NoError(t, err)

	f := &fixture{tracker: tracker, queue: q, stores: stores}
	asker := askerFunc(func(_ context.Context, question string, filter core.QueryFilter, minRelevance float32) (*core.AnswerResult, error) {
		f.asked = append(f.asked, minRelevance)
		switch question {
		case "":
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrEmptyQuestion)
		case "retrieval":
			return nil, fmt.Errorf("%w: store offline", core.ErrRetrievalFailed)
		case "generation":
			return nil, fmt.Errorf("%w: model offline", core.ErrGenerationFailed)
		case "retrieval timeout":
			return nil, fmt.Errorf("%w: %w", core.ErrRetrievalFailed, context.DeadlineExceeded)
		case "generation timeout":
			return nil, fmt.Errorf("%w: %w", core.ErrGenerationFailed, context.DeadlineExceeded)
		case "unanswerable":
			return &core.AnswerResult{Answer: core.NoGroundedAnswer, Sources: []core.Source{}}, nil
		}
		return &core.AnswerResult{
			Answer:   "Alice discussed AI.",
			Grounded: true,
			Sources:  []core.Source{{DocumentID: "ep42", Title: "Episode 42", Relevance: 0.9}},
		}, nil
	})

	srv, err := NewServer(Services{
		Asker:    asker,
		Indexer:  dispatcher,
		Statuses: tracker,
		Catalog:  stores.Catalog,
		Speech:   speech,
	}, &Config{Host: "localhost", Port: 0, DefaultMinRelevance: 0.8}, nil)
	require.NoError(t, err)
	f.server = srv
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func episode(title string, day int) *core.Document {
	return &core.Document{
		Title:       title,
		URI:         "https://example.com/" + title,
		PublishDate: time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC),
		Transcript:  "Alice: hello.",
	}
}

func TestNewServer(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	tracker, err := status.NewTracker(stores.Statuses)
	require.NoError(t, err)
	dispatcher, err := dispatch.NewDispatcher(stores.Catalog, tracker, queuemock.NewQueue())
	require.NoError(t, err)
	asker := askerFunc(func(context.Context, string, core.QueryFilter, float32) (*core.AnswerResult, error) { return nil, nil })

	full := Services{Asker: asker, Indexer: dispatcher, Statuses: tracker, Catalog: stores.Catalog}

	tests := []struct {
		name    string
		mutate  func(*Services)
		wantErr error
	}{
		{name: "missing asker", mutate: func(s *Services) { s.Asker = nil }, wantErr: ErrAskerRequired},
		{name: "missing indexer", mutate: func(s *Services) { s.Indexer = nil }, wantErr: ErrIndexerRequired},
		{name: "missing statuses", mutate: func(s *Services) { s.Statuses = nil }, wantErr: ErrStatusesRequired},
		{name: "missing catalog", mutate: func(s *Services) { s.Catalog = nil }, wantErr: ErrCatalogRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := full
			tt.mutate(&svc)
			_, err := NewServer(svc, nil, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		srv, err := NewServer(full, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", srv.config.Host)
		assert.Equal(t, 8080, srv.config.Port)
	})
}

func TestHandleHealth(t *testing.T) {
	f := setupTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestHandleMetrics(t *testing.T) {
	f := setupTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandleAsk(t *testing.T) {
	t.Run("grounded answer", func(t *testing.T) {
		f := setupTestServer(t, nil)

		rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: "What did Alice say?"})
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[core.AnswerResult](t, rec)
		assert.True(t, result.Grounded)
		require.Len(t, result.Sources, 1)
		assert.Equal(t, core.DocumentID("ep42"), result.Sources[0].DocumentID)
		assert.Equal(t, []float32{0.8}, f.asked, "default relevance floor applies")
	})

	t.Run("explicit relevance", func(t *testing.T) {
		f := setupTestServer(t, nil)
		floor := float32(0.3)

		rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: "q", MinRelevance: &floor})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []float32{0.3}, f.asked)
	})

	t.Run("ungrounded answer has empty sources", func(t *testing.T) {
		f := setupTestServer(t, nil)

		rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: "unanswerable"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"sources":[]`)
	})

	t.Run("speech rendered on request", func(t *testing.T) {
		f := setupTestServer(t, speakerFunc(func(_ context.Context, r *core.AnswerResult) {
			r.AudioRef = "/audio/answer.mp3"
		}))

		rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: "q", Speak: true})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/audio/answer.mp3", decode[core.AnswerResult](t, rec).AudioRef)
	})

	t.Run("speech requested but disabled", func(t *testing.T) {
		f := setupTestServer(t, nil)

		rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: "q", Speak: true})
		require.Equal(t, http.StatusOK, rec.Code)
		result := decode[core.AnswerResult](t, rec)
		assert.Empty(t, result.AudioRef)
		assert.Equal(t, []string{speechUnavailable}, result.Warnings)
	})

	errorCases := []struct {
		question string
		code     int
	}{
		{question: "", code: http.StatusBadRequest},
		{question: "retrieval", code: http.StatusBadGateway},
		{question: "generation", code: http.StatusBadGateway},
		{question: "retrieval timeout", code: http.StatusGatewayTimeout},
		{question: "generation timeout", code: http.StatusGatewayTimeout},
	}
	for _, tc := range errorCases {
		t.Run(fmt.Sprintf("error %d for %q", tc.code, tc.question), func(t *testing.T) {
			f := setupTestServer(t, nil)
			rec := f.do(t, http.MethodPost, "/api/v1/ask", AskRequest{Question: tc.question})
			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		f := setupTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleIndex(t *testing.T) {
	t.Run("enqueues and reports statuses", func(t *testing.T) {
		f := setupTestServer(t, nil)
		docs := []*core.Document{episode("Episode 1", 1), episode("Episode 2", 2)}

		rec := f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: docs})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decode[IndexResponse](t, rec).Enqueued)
		assert.Equal(t, 2, f.queue.Len())

		rec = f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: docs})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, decode[IndexResponse](t, rec).Enqueued)

		rec = f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: docs, Force: true})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decode[IndexResponse](t, rec).Enqueued)
	})

	t.Run("requires documents", func(t *testing.T) {
		f := setupTestServer(t, nil)
		rec := f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid document", func(t *testing.T) {
		f := setupTestServer(t, nil)
		bad := episode("", 1)

		rec := f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: []*core.Document{bad, episode("Episode 3", 3)}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[IndexResponse](t, rec)
		assert.Equal(t, 1, resp.Enqueued)
		assert.Len(t, resp.Errors, 1)
	})

	t.Run("queue unavailable", func(t *testing.T) {
		f := setupTestServer(t, nil)
		f.queue.PublishFunc = func(context.Context, queue.Job) error { return errors.New("broker down") }
		doc := episode("Episode 4", 4)

		rec := f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: []*core.Document{doc}})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Zero(t, decode[IndexResponse](t, rec).Enqueued)

		s, err := f.tracker.GetStatus(context.Background(), doc.AssignID())
		require.NoError(t, err)
		assert.Equal(t, core.StatusFailed, s)
	})
}

func TestHandleStatus(t *testing.T) {
	f := setupTestServer(t, nil)
	ctx := context.Background()
	doc := episode("Episode 1", 1)
	id := doc.AssignID()

	rec := f.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{Documents: []*core.Document{doc}})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.tracker.SetStatus(ctx, id, core.StatusProcessing, "")
	require.NoError(t, err)
	_, err = f.tracker.Complete(ctx, id, 3)
	require.NoError(t, err)

	t.Run("single record", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/documents/"+string(id)+"/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		record := decode[core.StatusRecord](t, rec)
		assert.Equal(t, core.StatusCompleted, record.Status)
		assert.Equal(t, 3, record.PartitionCount)
	})

	t.Run("unknown record", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/documents/missing/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, core.StatusUnknown, decode[core.StatusRecord](t, rec).Status)
	})

	t.Run("bulk", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/documents/status", StatusRequest{IDs: []core.DocumentID{id, "missing"}})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[StatusResponse](t, rec)
		assert.Equal(t, core.StatusCompleted, resp.Statuses[id])
		assert.Equal(t, core.StatusUnknown, resp.Statuses["missing"])
	})

	t.Run("bulk requires ids", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/documents/status", StatusRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/documents", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[DocumentList](t, rec)
		require.Len(t, list.Documents, 1)
		assert.Equal(t, id, list.Documents[0].ID)
		assert.Equal(t, "Episode 1", list.Documents[0].Title)
		assert.Equal(t, core.StatusCompleted, list.Documents[0].Status)
		assert.NotNil(t, list.Documents[0].UpdatedAt)
	})
}
