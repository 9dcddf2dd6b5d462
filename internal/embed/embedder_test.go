package embed

import (
	"context"
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Hello World", 2},
		{"Go developer, prefers minimal dependencies.", 5},
		{"a b c", 0},
		{"SQLite WAL mode", 3},
		{"", 0},
	}
	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		if len(tokens) != tt.want {
			t.Errorf("Tokenize(%q) = %d tokens %v, want %d", tt.input, len(tokens), tokens, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	vec := []float64{3, 4}
	Normalize(vec)
	norm := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
	if math.Abs(norm-1.0) > 1e-10 {
		t.Errorf("normalized magnitude = %f, want 1.0", norm)
	}
}

func TestNormalizeZero(t *testing.T) {
	vec := []float64{0, 0, 0}
	Normalize(vec)
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if sim := CosineSimilarity([]float64{1, 0, 0}, []float64{1, 0, 0}); math.Abs(sim-1.0) > 1e-10 {
		t.Errorf("identical vectors similarity = %f, want 1.0", sim)
	}
	if sim := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(sim) > 1e-10 {
		t.Errorf("orthogonal vectors similarity = %f, want 0.0", sim)
	}
	if sim := CosineSimilarity([]float64{1, 0}, []float64{-1, 0}); math.Abs(sim-(-1.0)) > 1e-10 {
		t.Errorf("opposite vectors similarity = %f, want -1.0", sim)
	}
	if sim := CosineSimilarity([]float64{1}, []float64{1, 2}); sim != 0 {
		t.Errorf("mismatched lengths = %f, want 0", sim)
	}
}

func TestTFIDFEmbedder(t *testing.T) {
	docs := []string{
		"Go developer who prefers minimal dependencies",
		"Uses SQLite with WAL mode for concurrent reads",
		"Pattern: graceful error handling with Go error wrapping",
	}
	embedder := NewTFIDFEmbedder(docs, 384)
	if embedder.Model() != "tfidf" {
		t.Errorf("model = %q, want tfidf", embedder.Model())
	}

	ctx := context.Background()
	vec, err := embedder.Embed(ctx, "Go developer minimal dependencies")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != embedder.Dimensions() {
		t.Errorf("vec length = %d, want %d", len(vec), embedder.Dimensions())
	}

	nodeVec, _ := embedder.Embed(ctx, "Go developer who prefers minimal dependencies")
	sim := CosineSimilarity(vec, nodeVec)
	if sim < 0.5 {
		t.Errorf("similar text cosine = %f, want > 0.5", sim)
	}

	unrelatedVec, _ := embedder.Embed(ctx, "Python machine learning tensorflow")
	unrelatedSim := CosineSimilarity(vec, unrelatedVec)
	if unrelatedSim >= sim {
		t.Errorf("unrelated similarity %f should be less than related %f", unrelatedSim, sim)
	}
}

func TestTFIDFEmbedderEmpty(t *testing.T) {
	embedder := NewTFIDFEmbedder(nil, 384)
	vec, err := embedder.Embed(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != embedder.Dimensions() {
		t.Errorf("vec length = %d, want %d", len(vec), embedder.Dimensions())
	}
}
