package search

import (
	"fmt"
	"testing"

	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/vector"
)

func BenchmarkFuse(b *testing.B) {
	kw := make([]keyword.Result, 100)
	sem := make([]Hit, 100)
	for i := 0; i < 100; i++ {
		kw[i] = keyword.Result{ID: fmt.Sprintf("m%d", i), Score: float64(100-i) / 10}
		sem[i] = Hit{ID: fmt.Sprintf("m%d", 99-i), Score: float64(100-i) / 100}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Fuse(kw, sem, 0.4, 0.6)
	}
}

func BenchmarkMergeByMax(b *testing.B) {
	title := make([]vector.Result, 200)
	summary := make([]vector.Result, 200)
	for i := range title {
		title[i] = vector.Result{ID: fmt.Sprintf("m%d", i), Score: 1 - float64(i)/200}
		summary[i] = vector.Result{ID: fmt.Sprintf("m%d", (i*7)%200), Score: 1 - float64(i)/300}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MergeByMax(title, summary)
	}
}
