package support

import (
	"testing"
	"time"
)

func TestJitter_StaysWithinSpread(t *testing.T) {
	rng := NewRand()
	base := 40 * time.Second

	for i := 0; i < 1000; i++ {
		jittered := Jitter(rng, base, 0.25)
		if jittered < 30*time.Second || jittered > 50*time.Second {
			t.Fatalf("Jitter returned %s, want within [30s, 50s]", jittered)
		}
	}

	if got := Jitter(rng, base, 0); got != base {
		t.Fatalf("Jitter with zero spread returned %s, want %s", got, base)
	}
}

func TestDelayBetween_Bounds(t *testing.T) {
	rng := NewRand()

	for i := 0; i < 1000; i++ {
		delay := DelayBetween(rng, 4*time.Second, 12*time.Second)
		if delay < 4*time.Second || delay > 12*time.Second {
			t.Fatalf("DelayBetween returned %s, want within [4s, 12s]", delay)
		}
	}

	if got := DelayBetween(rng, 5*time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("DelayBetween with equal bounds returned %s, want 5s", got)
	}
}

func TestSample_CapsAndPreservesInput(t *testing.T) {
	rng := NewRand()
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	sampled := Sample(rng, items, 3)
	if len(sampled) != 3 {
		t.Fatalf("Sample returned %d items, want 3", len(sampled))
	}

	for i, item := range items {
		if item != i+1 {
			t.Fatal("Sample modified its input slice")
		}
	}

	all := Sample(rng, items, 100)
	if len(all) != len(items) {
		t.Fatalf("Sample with large cap returned %d items, want %d", len(all), len(items))
	}
}

func TestUserAgentAndReferer_NonEmpty(t *testing.T) {
	if UserAgent() == "" {
		t.Fatal("UserAgent returned an empty string")
	}
	if Referer(NewRand()) == "" {
		t.Fatal("Referer returned an empty string")
	}
}
