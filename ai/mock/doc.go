// Package mock provides test doubles for the ai package interfaces.
//
// Each mock exposes a Func field per method. When the field is nil the mock
// falls back to a deterministic default, so tests only override what they
// assert on.
//
// # Usage
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors derived from a text hash
//   - MockAnswerGenerator: echoes the question and the passage titles
//   - MockSpeechSynthesizer: returns a fixed byte payload
//   - MockProvider: aggregates the three
package mock
