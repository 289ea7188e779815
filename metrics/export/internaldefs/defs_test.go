package internaldefs

import (
	"testing"

	"github.com/MrEthical07/authflow"
)

func TestBoundsMatchLatencyBuckets(t *testing.T) {
	b := Bounds()
	if len(b) != authflow.LatencyBucketCount {
		t.Fatalf("expected %d bounds, got %d", authflow.LatencyBucketCount, len(b))
	}
	if b[0].Le != "0.005" || b[0].Suffix != "0_005" {
		t.Fatalf("unexpected first bound %+v", b[0])
	}
	if b[len(b)-1].Le != "+Inf" {
		t.Fatalf("expected +Inf last, got %+v", b[len(b)-1])
	}
}

func TestCumulativePadsShortInput(t *testing.T) {
	got := Cumulative([]uint64{1, 2})
	if len(got) != authflow.LatencyBucketCount {
		t.Fatalf("expected %d buckets, got %d", authflow.LatencyBucketCount, len(got))
	}
	if got[1] != 3 || got[len(got)-1] != 3 {
		t.Fatalf("unexpected running totals %v", got)
	}
	if zero := Cumulative(nil); zero[len(zero)-1] != 0 {
		t.Fatalf("expected zeros for nil input, got %v", zero)
	}
}

func TestCountersAreUniqueAndSkipHistogram(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Counters {
		if d.ID == authflow.MetricTransitionLatency {
			t.Fatal("latency must not be exported as a counter")
		}
		if seen[d.Name] {
			t.Fatalf("duplicate counter %s", d.Name)
		}
		seen[d.Name] = true
	}
}
