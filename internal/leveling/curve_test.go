package leveling

import "testing"

func TestXPForNext(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{0, 100},
		{1, 110},
		{2, 121},
		{3, 133},
		{10, 259},
	}
	for _, tc := range cases {
		if got := XPForNext(tc.level); got != tc.want {
			t.Errorf("XPForNext(%d) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

func TestLevelFromXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{209, 1},
		{210, 2},
		{330, 2},
		{331, 3},
	}
	for _, tc := range cases {
		if got := LevelFromXP(tc.xp); got != tc.want {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestCurveConsistency(t *testing.T) {
	for level := 0; level <= 50; level++ {
		threshold := XPForLevel(level)
		if got := LevelFromXP(threshold); got != level {
			t.Fatalf("LevelFromXP(XPForLevel(%d)) = %d", level, got)
		}
		if level > 0 {
			if got := LevelFromXP(threshold - 1); got != level-1 {
				t.Fatalf("LevelFromXP(XPForLevel(%d)-1) = %d", level, got)
			}
		}
	}
}
