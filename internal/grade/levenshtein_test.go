package grade

import "testing"

func TestDistanceKnownValues(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "かな", 2},
		{"arigatou", "arigato", 1},
		{"kitten", "sitting", 3},
		{"けーき", "けーき", 0},
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Fatalf("Distance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestDistanceProperties(t *testing.T) {
	samples := []string{"", "a", "かな", "toukyou", "tookyoo", "arigatou"}
	for _, s := range samples {
		if Distance(s, s) != 0 {
			t.Fatalf("expected zero self-distance for %q", s)
		}
		for _, u := range samples {
			if Distance(s, u) != Distance(u, s) {
				t.Fatalf("distance not symmetric for %q / %q", s, u)
			}
			for _, v := range samples {
				if Distance(s, u) > Distance(s, v)+Distance(v, u) {
					t.Fatalf("triangle inequality violated for %q %q %q", s, u, v)
				}
			}
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("two empty strings should be fully similar, got %v", got)
	}
	if got := Similarity("arigatou", "arigato"); got != 0.875 {
		t.Fatalf("expected 0.875, got %v", got)
	}
}
