//go:build ignore

// Package main generates a synthetic text corpus for indexing benchmarks.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
//
// The corpus is plain-text notes and markdown documents drawn from a fixed
// vocabulary, so indexing runs produce a predictable number of distinct
// keywords. Sentences carry no punctuation: a trailing dot would mint a
// second keyword for the same word.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	vocabSize = flag.Int("vocab", 4000, "Number of distinct words to draw from")
)

// Base word pool. Past its length, words get a numeric suffix so the
// distinct-keyword count scales with -vocab.
var stems = []string{
	"latency", "throughput", "replica", "quorum", "leader", "follower",
	"snapshot", "compaction", "segment", "journal", "checkpoint", "backlog",
	"cache", "eviction", "timeout", "retries", "backoff", "failover",
	"partition", "rebalance", "gossip", "heartbeat", "lease", "consensus",
	"durability", "replication", "shard", "bucket", "cursor", "offset",
	"watermark", "ingest", "pipeline", "batch", "flush", "merge",
	"tombstone", "vacuum", "lookup", "prefix", "suffix", "token",
	"buffer", "channel", "worker", "queue", "scheduler", "ticker",
	"jitter", "saturation", "capacity", "headroom", "quota", "throttle",
	"drain", "warmup", "cooldown", "rollout", "rollback", "canary",
	"baseline", "regression", "profile", "tracing", "sampling", "histogram",
	"gauge", "counter", "alert", "pager", "runbook", "incident",
	"postmortem", "mitigation", "remediation", "dashboard", "threshold",
	"anomaly", "forecast", "audit",
}

// Markdown section topics.
var topics = []string{
	"Capacity Planning", "Incident Review", "Deployment Notes",
	"Cache Tuning", "Replication Runbook", "Query Performance",
	"Storage Layout", "Failover Drill", "Release Checklist",
	"Latency Budget", "Alert Routing", "Backfill Procedure",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	vocab := buildVocabulary(*vocabSize)

	subdirs := []string{"notes", "docs"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d files in %s (vocabulary: %d words)...\n",
		*numFiles, *outputDir, len(vocab))

	// Distribute files across formats
	txtFiles := *numFiles * 70 / 100 // 70% plain-text notes
	mdFiles := *numFiles - txtFiles  // 30% markdown docs

	generated := 0

	for i := 0; i < txtFiles; i++ {
		if err := generateTextFile(rng, vocab, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating text file %d: %v\n", i, err)
			continue
		}
		generated++
	}

	for i := 0; i < mdFiles; i++ {
		if err := generateMarkdownFile(rng, vocab, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating markdown file %d: %v\n", i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d files successfully.\n", generated)
}

// buildVocabulary expands the stem pool deterministically up to size words.
func buildVocabulary(size int) []string {
	if size < 1 {
		size = 1
	}
	vocab := make([]string, size)
	for i := range vocab {
		stem := stems[i%len(stems)]
		if round := i / len(stems); round > 0 {
			stem = fmt.Sprintf("%s%d", stem, round)
		}
		vocab[i] = stem
	}
	return vocab
}

func randomWord(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// sentence builds a run of 6-14 vocabulary words on one line.
func sentence(rng *rand.Rand, vocab []string) string {
	n := 6 + rng.Intn(9)
	words := make([]string, n)
	for i := range words {
		words[i] = randomWord(rng, vocab)
	}
	return strings.Join(words, " ")
}

// paragraph builds 2-5 sentences separated by newlines.
func paragraph(rng *rand.Rand, vocab []string) string {
	n := 2 + rng.Intn(4)
	lines := make([]string, n)
	for i := range lines {
		lines[i] = sentence(rng, vocab)
	}
	return strings.Join(lines, "\n")
}

func generateTextFile(rng *rand.Rand, vocab []string, index int) error {
	paragraphs := 3 + rng.Intn(4)
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = paragraph(rng, vocab)
	}
	content := strings.Join(parts, "\n\n") + "\n"

	filename := filepath.Join(*outputDir, "notes", fmt.Sprintf("note_%04d.txt", index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateMarkdownFile(rng *rand.Rand, vocab []string, index int) error {
	var b strings.Builder

	title := randomWord(rng, topics)
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", title, paragraph(rng, vocab))

	sections := 2 + rng.Intn(3)
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", randomWord(rng, topics), paragraph(rng, vocab))
		items := 3 + rng.Intn(4)
		for j := 0; j < items; j++ {
			fmt.Fprintf(&b, "- %s\n", sentence(rng, vocab))
		}
		b.WriteString("\n")
	}

	filename := filepath.Join(*outputDir, "docs", fmt.Sprintf("doc_%04d.md", index))
	return os.WriteFile(filename, []byte(b.String()), 0644)
}
