package cache

import "testing"

func TestKeyJoinsParts(t *testing.T) {
	got := Key(NSLeaderboard, "base-referral", "week", "1", "50")
	want := "leaderboard:base-referral:week:1:50"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestKeyKeepsEmptyParts(t *testing.T) {
	a := Key(NSRewardTotals, "", "week")
	b := Key(NSRewardTotals, "week", "")
	if a == b {
		t.Fatalf("keys with shifted empty parts must differ, both %q", a)
	}
}

func TestKeyEscapesSeparator(t *testing.T) {
	got := Key(NSRewardGraph, "a:b")
	want := "reward-graph:a_b"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got == Key(NSRewardGraph, "a", "b") {
		t.Fatalf("escaped part must not collide with two parts")
	}
}
