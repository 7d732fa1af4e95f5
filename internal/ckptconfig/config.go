// Package ckptconfig loads the environment/config surface the engine
// recognizes (spec section 6): which level to target, whether
// differential checkpointing is enabled, and the directories each level
// reads and writes.
//
// Config is declarative data, not behavior — it describes what the
// caller asked for, the same way gastrolog's config.Config describes
// the desired system shape without instantiating anything itself.
package ckptconfig

import (
	"fmt"
	"strconv"
)

// Level identifies a storage tier.
type Level int

const (
	L1 Level = 1
	L2 Level = 2
	L3 Level = 3
	L4 Level = 4
)

func (l Level) Valid() bool { return l >= L1 && l <= L4 }

func (l Level) String() string {
	switch l {
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	default:
		return fmt.Sprintf("L?(%d)", int(l))
	}
}

// Config is the subset of job configuration the core engine consumes.
// Everything else (topology sizing, application variable registration,
// scheduling of checkpoint intervals) belongs to the out-of-scope
// higher-level API per spec section 1.
type Config struct {
	// EnableDiffCkpt, when true, routes writes through LevelDir[1]/current
	// and renames over the canonical name on completion (spec section 4.3
	// step 5, section 6).
	EnableDiffCkpt bool

	// CkptLevel is the tier this process is currently targeting.
	CkptLevel Level

	// IsInline, for L4 only, writes directly to GlobalTmpDir instead of
	// staging locally first.
	IsInline bool

	// LegacyCkptIDMean reproduces the source's mean-of-positive-ckptID
	// tie-break (spec section 9, flagged as an open question) instead of
	// the strict all-equal-or-fail variant this engine defaults to.
	LegacyCkptIDMean bool

	// LevelDir[i] is LEVEL_DIR[i] for i in 1..4 (index 0 unused).
	LevelDir [5]string

	LocalTmpDir  string
	GlobalTmpDir string
}

// Getenv matches os.LookupEnv's shape so Load can be driven by a fake in
// tests without mutating process environment.
type Getenv func(key string) (string, bool)

// Load builds a Config from the named environment variables. It never
// reads os.Environ itself; callers pass os.LookupEnv (or a test double)
// so loading stays free of global state and safe to run concurrently in
// tests.
func Load(getenv Getenv) (Config, error) {
	var cfg Config

	if v, ok := getenv("FTI_ENABLE_DIFF_CKPT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("FTI_ENABLE_DIFF_CKPT: %w", err)
		}
		cfg.EnableDiffCkpt = b
	}

	if v, ok := getenv("FTI_CKPT_LEVEL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("FTI_CKPT_LEVEL: %w", err)
		}
		cfg.CkptLevel = Level(n)
		if !cfg.CkptLevel.Valid() {
			return Config{}, fmt.Errorf("FTI_CKPT_LEVEL: %d out of range [1,4]", n)
		}
	}

	if v, ok := getenv("FTI_IS_INLINE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("FTI_IS_INLINE: %w", err)
		}
		cfg.IsInline = b
	}

	if v, ok := getenv("FTI_LEGACY_CKPTID_MEAN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("FTI_LEGACY_CKPTID_MEAN: %w", err)
		}
		cfg.LegacyCkptIDMean = b
	}

	for i := 1; i <= 4; i++ {
		key := fmt.Sprintf("FTI_LEVEL_DIR_%d", i)
		if v, ok := getenv(key); ok {
			cfg.LevelDir[i] = v
		}
	}

	if v, ok := getenv("FTI_LOCAL_TMP_DIR"); ok {
		cfg.LocalTmpDir = v
	}
	if v, ok := getenv("FTI_GLOBAL_TMP_DIR"); ok {
		cfg.GlobalTmpDir = v
	}

	return cfg, nil
}
