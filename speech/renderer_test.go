package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/episodic/ai/mock"
	"github.com/poiesic/episodic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answer() *core.AnswerResult {
	return &core.AnswerResult{
		Answer:   "Alice thinks AI will change radio.",
		Grounded: true,
		Sources:  []core.Source{{DocumentID: "ep42", Title: "Episode 42"}},
	}
}

func TestNewRenderer(t *testing.T) {
	_, err := NewRenderer(nil, t.TempDir())
	assert.ErrorIs(t, err, ErrSynthesizerRequired)

	_, err = NewRenderer(mock.NewMockSpeechSynthesizer(), "")
	assert.ErrorIs(t, err, ErrDirRequired)

	dir := filepath.Join(t.TempDir(), "nested", "audio")
	_, err = NewRenderer(mock.NewMockSpeechSynthesizer(), dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestRender(t *testing.T) {
	t.Run("writes audio and sets reference", func(t *testing.T) {
		dir := t.TempDir()
		synth := mock.NewMockSpeechSynthesizer()
		r, err := NewRenderer(synth, dir)
		require.NoError(t, err)

		result := answer()
		r.Render(context.Background(), result)

		require.NotEmpty(t, result.AudioRef)
		assert.Equal(t, dir, filepath.Dir(result.AudioRef))
		assert.Equal(t, ".mp3", filepath.Ext(result.AudioRef))
		data, err := os.ReadFile(result.AudioRef)
		require.NoError(t, err)
		assert.Equal(t, mock.DefaultAudio, data)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, 1, synth.CallCount())
	})

	t.Run("failure becomes a warning", func(t *testing.T) {
		synth := mock.NewMockSpeechSynthesizer()
		synth.SynthesizeFunc = func(context.Context, string) ([]byte, error) {
			return nil, errors.New("tts offline")
		}
		r, err := NewRenderer(synth, t.TempDir())
		require.NoError(t, err)

		result := answer()
		r.Render(context.Background(), result)

		assert.Empty(t, result.AudioRef)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "tts offline")
		assert.Equal(t, answer().Answer, result.Answer)
		assert.Equal(t, answer().Sources, result.Sources)
	})

	t.Run("empty audio is a failure", func(t *testing.T) {
		synth := mock.NewMockSpeechSynthesizer()
		synth.SynthesizeFunc = func(context.Context, string) ([]byte, error) { return nil, nil }
		r, err := NewRenderer(synth, t.TempDir())
		require.NoError(t, err)

		result := answer()
		r.Render(context.Background(), result)
		assert.Empty(t, result.AudioRef)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("timeout becomes a warning", func(t *testing.T) {
		synth := mock.NewMockSpeechSynthesizer()
		synth.SynthesizeFunc = func(ctx context.Context, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		r, err := NewRenderer(synth, t.TempDir(), WithTimeout(10*time.Millisecond))
		require.NoError(t, err)

		result := answer()
		r.Render(context.Background(), result)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "deadline exceeded")
	})

	t.Run("nil result is ignored", func(t *testing.T) {
		r, err := NewRenderer(mock.NewMockSpeechSynthesizer(), t.TempDir())
		require.NoError(t, err)
		r.Render(context.Background(), nil)
	})
}
