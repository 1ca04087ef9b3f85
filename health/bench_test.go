package health

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkAggregator_CheckAll measures a fan-out over several checkers.
func BenchmarkAggregator_CheckAll(b *testing.B) {
	agg := NewAggregator()
	for i := 0; i < 4; i++ {
		agg.Register(fixed(fmt.Sprintf("check-%d", i), Healthy("ok")))
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = agg.CheckAll(ctx)
	}
}
