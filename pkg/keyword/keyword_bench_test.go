package keyword

import (
	"context"
	"fmt"
	"testing"
)

// setupBenchIndex creates an in-memory index preloaded with n distinct
// keywords. Every word lands in its own commit, so setup cost grows with n.
func setupBenchIndex(b *testing.B, n int) *Index {
	b.Helper()
	ix, err := New()
	if err != nil {
		b.Fatalf("new index: %v", err)
	}
	b.Cleanup(func() { _ = ix.Close() })

	ctx := context.Background()
	words := benchWords(n)
	if err := ix.IndexWords(ctx, words); err != nil {
		b.Fatalf("preload failed: %v", err)
	}
	// Force the lazy open so the timed loop never pays for it.
	if _, err := ix.Stats(); err != nil {
		b.Fatalf("stats failed: %v", err)
	}
	return ix
}

func benchWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("term%06d", i)
	}
	return words
}

// BenchmarkSearch_Scale runs keyword queries at various index sizes.
func BenchmarkSearch_Scale(b *testing.B) {
	scales := []int{100, 1000, 5000}

	for _, scale := range scales {
		b.Run(fmt.Sprintf("scale_%d", scale), func(b *testing.B) {
			ix := setupBenchIndex(b, scale)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				query := fmt.Sprintf("term%06d", i%scale)
				if _, err := ix.Search(ctx, query, 10); err != nil {
					b.Fatalf("search failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkSearch_MatchAll measures blank-query enumeration cost.
func BenchmarkSearch_MatchAll(b *testing.B) {
	ix := setupBenchIndex(b, 5000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := ix.Search(ctx, "", 100); err != nil {
			b.Fatalf("search failed: %v", err)
		}
	}
}

// BenchmarkSearch_Wildcard measures prefix expansion cost.
func BenchmarkSearch_Wildcard(b *testing.B) {
	ix := setupBenchIndex(b, 5000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := ix.Search(ctx, "term0001*", 20); err != nil {
			b.Fatalf("search failed: %v", err)
		}
	}
}

// BenchmarkSearch_Parallel tests concurrent search throughput against a
// shared index.
func BenchmarkSearch_Parallel(b *testing.B) {
	ix := setupBenchIndex(b, 5000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			query := fmt.Sprintf("term%06d", i%5000)
			if _, err := ix.Search(ctx, query, 10); err != nil {
				b.Fatalf("search failed: %v", err)
			}
			i++
		}
	})
}

// BenchmarkIndexWords_Throughput measures the per-word commit write path.
func BenchmarkIndexWords_Throughput(b *testing.B) {
	batchSizes := []int{10, 100, 1000}

	for _, size := range batchSizes {
		b.Run(fmt.Sprintf("words_%d", size), func(b *testing.B) {
			ix := setupBenchIndex(b, 0)
			ctx := context.Background()
			words := benchWords(size)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if err := ix.IndexWords(ctx, words); err != nil {
					b.Fatalf("index failed: %v", err)
				}
			}

			b.ReportMetric(float64(size*b.N)/b.Elapsed().Seconds(), "words/sec")
		})
	}
}

// BenchmarkIndex_Document measures extraction plus upsert for a mid-size
// document.
func BenchmarkIndex_Document(b *testing.B) {
	ix := setupBenchIndex(b, 0)
	ctx := context.Background()

	doc := ""
	for _, w := range benchWords(50) {
		doc += w + " "
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := ix.Index(ctx, doc); err != nil {
			b.Fatalf("index failed: %v", err)
		}
	}
}
