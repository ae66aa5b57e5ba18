package leveling

import "math"

// XPForNext returns the XP needed to advance from level to level+1.
// The step grows by 10% per level, truncated.
func XPForNext(level int) int {
	return int(100 * math.Pow(1.1, float64(level)))
}

// LevelFromXP converts a total XP amount into a level by walking the
// thresholds from zero.
func LevelFromXP(xp int) int {
	level := 0
	for {
		cost := XPForNext(level)
		if xp < cost {
			return level
		}
		xp -= cost
		level++
	}
}

// XPForLevel returns the total XP required to reach level starting from zero.
func XPForLevel(level int) int {
	total := 0
	for i := 0; i < level; i++ {
		total += XPForNext(i)
	}
	return total
}
