package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/ai/mock"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
	"github.com/poiesic/episodic/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore implements storage.PartitionStore with an injectable search.
type stubStore struct {
	searchFn func(ctx context.Context, vector []float32, filter core.QueryFilter, minRelevance float32, limit int) ([]*core.Partition, error)

	lastLimit int
}

var _ storage.PartitionStore = (*stubStore)(nil)

func (s *stubStore) UpsertPartitions(context.Context, core.DocumentID, []*core.Partition) error {
	return nil
}

func (s *stubStore) SimilaritySearch(ctx context.Context, vector []float32, filter core.QueryFilter, minRelevance float32, limit int) ([]*core.Partition, error) {
	s.lastLimit = limit
	if s.searchFn != nil {
		return s.searchFn(ctx, vector, filter, minRelevance, limit)
	}
	return nil, nil
}

func (s *stubStore) CountPartitions(context.Context, core.DocumentID) (int, error) { return 0, nil }
func (s *stubStore) DeletePartitions(context.Context, core.DocumentID) error        { return nil }
func (s *stubStore) Close() error                                                   { return nil }

// recordingMonitor captures each stage it sees.
type recordingMonitor struct {
	stages    []string
	truncated bool
	result    *core.AnswerResult
}

func (m *recordingMonitor) Start(string, core.QueryFilter, float32) {
	m.stages = append(m.stages, "start")
}

func (m *recordingMonitor) AfterEmbedding([]float32) {
	m.stages = append(m.stages, "embedding")
}

func (m *recordingMonitor) AfterSearch([]*core.Partition) {
	m.stages = append(m.stages, "search")
}

func (m *recordingMonitor) AfterContextWindow(_ []ai.Passage, truncated bool) {
	m.stages = append(m.stages, "context")
	m.truncated = truncated
}

func (m *recordingMonitor) Finish(result *core.AnswerResult) {
	m.stages = append(m.stages, "finish")
	m.result = result
}

func partition(id core.DocumentID, pos int, title string, relevance float32, speakers ...string) *core.Partition {
	tags := core.Tags{}
	tags.Add(core.TagTitle, title)
	tags.Add(core.TagURI, "https://example.com/"+string(id))
	tags.Add(core.TagDate, "2024-05-01")
	tags.Add(core.TagSpeaker, speakers...)
	return &core.Partition{
		DocumentID: id,
		Position:   pos,
		Text:       title + " text " + string(rune('a'+pos)),
		Tags:       tags,
		Relevance:  relevance,
	}
}

func TestNewEngine(t *testing.T) {
	provider := mock.NewMockProvider()

	t.Run("requires store", func(t *testing.T) {
		_, err := NewEngine(nil, provider)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("requires provider", func(t *testing.T) {
		_, err := NewEngine(&stubStore{}, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("rejects bad options", func(t *testing.T) {
		_, err := NewEngine(&stubStore{}, provider, WithContextBudget(0))
		assert.Error(t, err)

		_, err = NewEngine(&stubStore{}, provider, WithMaxMatches(-1))
		assert.Error(t, err)
	})

	t.Run("applies options", func(t *testing.T) {
		e, err := NewEngine(&stubStore{}, provider, WithContextBudget(42), WithMaxMatches(7))
		require.NoError(t, err)
		assert.Equal(t, 42, e.contextBudget)
		assert.Equal(t, 7, e.maxMatches)
	})
}

func TestAsk_InvalidInput(t *testing.T) {
	provider := mock.NewMockProvider()
	e, err := NewEngine(&stubStore{}, provider)
	require.NoError(t, err)

	tests := []struct {
		name      string
		question  string
		filter    core.QueryFilter
		relevance float32
	}{
		{name: "empty question", question: "", relevance: 0.5},
		{name: "blank question", question: "   \n", relevance: 0.5},
		{name: "relevance above one", question: "q", relevance: 1.5},
		{name: "negative relevance", question: "q", relevance: -0.1},
		{name: "filter key without values", question: "q", filter: core.QueryFilter{"speaker": {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Ask(context.Background(), tt.question, tt.filter, tt.relevance)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, provider.GetMockEmbedder().CallCount())
}

func TestAsk_NoMatches(t *testing.T) {
	provider := mock.NewMockProvider()
	e, err := NewEngine(&stubStore{}, provider)
	require.NoError(t, err)

	result, err := e.Ask(context.Background(), "What did Alice say about AI?", nil, 0.9)
	require.NoError(t, err)

	assert.False(t, result.Grounded)
	assert.Equal(t, core.NoGroundedAnswer, result.Answer)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, provider.GetMockGenerator().CallCount())
}

func TestAsk_Grounded(t *testing.T) {
	store := &stubStore{
		searchFn: func(_ context.Context, _ []float32, filter core.QueryFilter, minRelevance float32, _ int) ([]*core.Partition, error) {
			assert.Equal(t, core.QueryFilter{"speaker": {"Alice"}}, filter)
			assert.Equal(t, float32(0.5), minRelevance)
			return []*core.Partition{
				partition("ep42", 1, "Episode 42", 0.95, "Alice"),
				partition("ep7", 0, "Episode 7", 0.90, "Alice", "Bob"),
				partition("ep42", 0, "Episode 42", 0.80, "Alice", "Carol"),
			}, nil
		},
	}
	provider := mock.NewMockProvider()
	e, err := NewEngine(store, provider, WithMaxMatches(10))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := e.AskWithMonitor(context.Background(), "  What did Alice say about AI?  ",
		core.QueryFilter{"speaker": {"Alice"}}, 0.5, monitor)
	require.NoError(t, err)

	assert.True(t, result.Grounded)
	assert.Equal(t, `Answer to "What did Alice say about AI?" from Episode 42; Episode 7; Episode 42`, result.Answer)
	assert.Equal(t, 10, store.lastLimit)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, core.DocumentID("ep42"), result.Sources[0].DocumentID)
	assert.Equal(t, float32(0.95), result.Sources[0].Relevance)
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, result.Sources[0].Speakers)
	assert.Equal(t, core.DocumentID("ep7"), result.Sources[1].DocumentID)

	assert.Equal(t, []string{"start", "embedding", "search", "context", "finish"}, monitor.stages)
	assert.False(t, monitor.truncated)
	assert.Same(t, result, monitor.result)
}

func TestAsk_Failures(t *testing.T) {
	boom := errors.New("boom")
	matches := func(context.Context, []float32, core.QueryFilter, float32, int) ([]*core.Partition, error) {
		return []*core.Partition{partition("ep1", 0, "Episode 1", 0.9)}, nil
	}

	t.Run("embedding failure", func(t *testing.T) {
		provider := mock.NewMockProvider()
		provider.GetMockEmbedder().EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return nil, boom
		}
		e, err := NewEngine(&stubStore{searchFn: matches}, provider)
		require.NoError(t, err)

		_, err = e.Ask(context.Background(), "q", nil, 0.1)
		assert.ErrorIs(t, err, core.ErrRetrievalFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("search failure", func(t *testing.T) {
		store := &stubStore{searchFn: func(context.Context, []float32, core.QueryFilter, float32, int) ([]*core.Partition, error) {
			return nil, storage.ErrDimensionMismatch
		}}
		e, err := NewEngine(store, mock.NewMockProvider())
		require.NoError(t, err)

		_, err = e.Ask(context.Background(), "q", nil, 0.1)
		assert.ErrorIs(t, err, core.ErrRetrievalFailed)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("generation failure", func(t *testing.T) {
		provider := mock.NewMockProvider()
		provider.GetMockGenerator().GenerateAnswerFunc = func(context.Context, string, []ai.Passage) (string, error) {
			return "", boom
		}
		e, err := NewEngine(&stubStore{searchFn: matches}, provider)
		require.NoError(t, err)

		_, err = e.Ask(context.Background(), "q", nil, 0.1)
		assert.ErrorIs(t, err, core.ErrGenerationFailed)
	})
}

func TestAsk_ContextBudget(t *testing.T) {
	long := partition("ep1", 0, "Episode 1", 0.9)
	long.Text = strings.Repeat("x", 50)
	store := &stubStore{searchFn: func(context.Context, []float32, core.QueryFilter, float32, int) ([]*core.Partition, error) {
		return []*core.Partition{long, partition("ep2", 0, "Episode 2", 0.8)}, nil
	}}
	provider := mock.NewMockProvider()
	e, err := NewEngine(store, provider, WithContextBudget(20))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := e.AskWithMonitor(context.Background(), "q", nil, 0.1, monitor)
	require.NoError(t, err)

	passages := provider.GetMockGenerator().LastPassages()
	require.Len(t, passages, 1)
	assert.Equal(t, strings.Repeat("x", 20), passages[0].Text)
	assert.True(t, monitor.truncated)

	// Every qualifying document is still cited.
	assert.Len(t, result.Sources, 2)
}

func TestAsk_WithBadgerStore(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	vector := []float32{1, 0, 0}
	orthogonal := []float32{0, 1, 0}

	alice := partition("ep42", 0, "Episode 42", 0, "Alice")
	alice.Vector = vector
	bob := partition("ep43", 0, "Episode 43", 0, "Bob")
	bob.Vector = orthogonal
	require.NoError(t, stores.Partitions.UpsertPartitions(ctx, "ep42", []*core.Partition{alice}))
	require.NoError(t, stores.Partitions.UpsertPartitions(ctx, "ep43", []*core.Partition{bob}))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) { return vector, nil }
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockAnswerGenerator(), nil)

	e, err := NewEngine(stores.Partitions, provider)
	require.NoError(t, err)

	result, err := e.Ask(ctx, "What did Alice say?", nil, 0.5)
	require.NoError(t, err)
	require.True(t, result.Grounded)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, core.DocumentID("ep42"), result.Sources[0].DocumentID)
	assert.Equal(t, "https://example.com/ep42", result.Sources[0].URI)

	result, err = e.Ask(ctx, "What did Alice say?", core.QueryFilter{"speaker": {"Bob"}}, 0.5)
	require.NoError(t, err)
	assert.False(t, result.Grounded)
}
