package combat

// MaxDamage bounds the per-hit damage values so accumulated pending damage
// stays far from int overflow.
const MaxDamage = 1_000_000

// Config holds the DM-tunable rules.
type Config struct {
	AutoApplyDamage        bool
	ClearRollsAfterResolve bool
	ClampHPToZero          bool
	AutoEngageOnAdd        bool

	DefaultPlayerDamage  int
	DefaultMonsterDamage int
	DefaultMonsterHP     int
	DefaultMonsterDC     int
	DefaultPlayerHP      int
	MaxRollValue         int
	FeedMaxEntries       int
}

// DefaultConfig returns the rules a fresh install starts with.
func DefaultConfig() Config {
	return Config{
		AutoApplyDamage:        true,
		ClearRollsAfterResolve: true,
		ClampHPToZero:          true,
		AutoEngageOnAdd:        false,
		DefaultPlayerDamage:    1,
		DefaultMonsterDamage:   1,
		DefaultMonsterHP:       10,
		DefaultMonsterDC:       10,
		DefaultPlayerHP:        10,
		MaxRollValue:           20,
		FeedMaxEntries:         0,
	}
}

// normalized clamps out-of-range values at entry.
func (c Config) normalized() Config {
	c.DefaultPlayerDamage = min(max(c.DefaultPlayerDamage, 0), MaxDamage)
	c.DefaultMonsterDamage = min(max(c.DefaultMonsterDamage, 0), MaxDamage)
	c.DefaultMonsterHP = max(c.DefaultMonsterHP, 1)
	c.DefaultMonsterDC = max(c.DefaultMonsterDC, 1)
	c.DefaultPlayerHP = max(c.DefaultPlayerHP, 1)
	c.MaxRollValue = max(c.MaxRollValue, 1)
	c.FeedMaxEntries = max(c.FeedMaxEntries, 0)
	return c
}
