package progression

// Level thresholds form a strictly increasing step function of XP:
// entering level l costs 100*(l-1) XP more than level l-1, so the
// cumulative threshold for level l is 100*l*(l-1)/2. Level 1 at 0 XP,
// level 2 at 100, level 3 at 300, level 4 at 600.

// LevelFromXP returns the level for a given XP total. Deterministic and
// monotonic, so replaying an XP award is safe.
func LevelFromXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	level := 1
	for xp >= xpForLevel(level+1) {
		level++
	}
	return level
}

// xpForLevel returns the cumulative XP required to enter the level.
func xpForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	return 100 * l * (l - 1) / 2
}

// XPToNextLevel reports how much XP is missing until the next level.
func XPToNextLevel(xp int64) int64 {
	return xpForLevel(LevelFromXP(xp)+1) - xp
}
