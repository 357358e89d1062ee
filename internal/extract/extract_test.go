package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Extract_DefaultSplitsOnWhitespace(t *testing.T) {
	// Given: default pipeline
	p := New(DefaultConfig())

	// When: extracting a multi-word document
	words := p.Extract("quick  brown\tfox\njumps")

	// Then: every whitespace run separates words
	assert.Equal(t, []string{"quick", "brown", "fox", "jumps"}, words)
}

func TestPipeline_Extract_EmptyDocument(t *testing.T) {
	p := New(DefaultConfig())

	words := p.Extract("")

	assert.Empty(t, words)
}

func TestPipeline_Extract_DropsStopWords(t *testing.T) {
	// Given: default pipeline with the English stop-word set
	p := New(DefaultConfig())

	// When: extracting text containing stop words
	words := p.Extract("the quick fox and the lazy dog")

	// Then: stop words are gone, order preserved
	assert.Equal(t, []string{"quick", "fox", "lazy", "dog"}, words)
}

func TestPipeline_Extract_StopWordsCaseSensitive(t *testing.T) {
	// Given: stop word "the" in lowercase only
	p := New(DefaultConfig())

	// When: the same word appears capitalized
	words := p.Extract("The the THE")

	// Then: only the exact form is dropped
	assert.Equal(t, []string{"The", "THE"}, words)
}

func TestPipeline_Extract_TermPatternFullMatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single char dropped", "x ok", []string{"ok"}},
		{"punctuation dropped", "foo! bar", []string{"bar"}},
		{"dots allowed", "v1.2.3 pkg.name", []string{"v1.2.3", "pkg.name"}},
		{"digits allowed", "2026 ab12", []string{"2026", "ab12"}},
		{"unicode dropped", "héllo world", []string{"world"}},
	}

	p := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Extract(tt.in))
		})
	}
}

func TestPipeline_Extract_CustomExtractFunc(t *testing.T) {
	// Given: an extraction function that emits comma-separated fields
	cfg := DefaultConfig()
	cfg.Extract = func(document string) []string {
		return strings.Split(document, ",")
	}
	p := New(cfg)

	// When: extracting
	words := p.Extract("alpha,beta gamma,the")

	// Then: each field still passes the split and filter stages
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, words)
}

func TestPipeline_Extract_NilSplitKeepsRawWords(t *testing.T) {
	// Given: splitting disabled
	cfg := DefaultConfig()
	cfg.Split = nil
	cfg.Term = nil
	p := New(cfg)

	// When: extracting a document with spaces
	words := p.Extract("one two three")

	// Then: the raw word is untouched
	assert.Equal(t, []string{"one two three"}, words)
}

func TestPipeline_Filter_Idempotent(t *testing.T) {
	// Given: an already-filtered word list
	p := New(DefaultConfig())
	first := p.Filter([]string{"the", "quick", "x", "running", "lazy"})

	// When: filtering again
	second := p.Filter(first)

	// Then: the second pass changes nothing
	assert.Equal(t, first, second)
}

func TestPipeline_Filter_PreservesDuplicates(t *testing.T) {
	p := New(DefaultConfig())

	words := p.Filter([]string{"dup", "dup", "dup"})

	// Uniqueness is the store's job, not the pipeline's.
	assert.Equal(t, []string{"dup", "dup", "dup"}, words)
}

func TestPipeline_Filter_CustomTermPattern(t *testing.T) {
	// Given: a pattern that requires a digit suffix
	cfg := DefaultConfig()
	cfg.Term = regexp.MustCompile(`^[a-z]+[0-9]+$`)
	p := New(cfg)

	words := p.Filter([]string{"abc1", "abc", "1abc", "xyz99"})

	assert.Equal(t, []string{"abc1", "xyz99"}, words)
}

func TestStopWordSet_ExactForms(t *testing.T) {
	s := StopWordSet("Foo", "bar")

	_, hasFoo := s["Foo"]
	_, hasLower := s["foo"]
	require.True(t, hasFoo)
	assert.False(t, hasLower, "stop words must not be normalized")
}

func TestDefaultStopWords_ContainsFunctionWords(t *testing.T) {
	s := DefaultStopWords()

	for _, w := range []string{"the", "and", "of", "to", "with"} {
		_, ok := s[w]
		assert.True(t, ok, "missing stop word %q", w)
	}
}

func BenchmarkPipeline_Extract(b *testing.B) {
	p := New(DefaultConfig())
	doc := strings.Repeat("the quick brown fox jumps over a lazy dog near x7 ", 20)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = p.Extract(doc)
	}
}
