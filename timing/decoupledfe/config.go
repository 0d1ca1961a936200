package decoupledfe

import (
	"encoding/json"
	"fmt"
	"os"
)

// FrontendMode selects which external instruction source the front-end
// pulls ops from. FrontendTrace and FrontendMemtrace change producer
// behavior: off-path taken
// branches are redirected eagerly (spec.md §4.2) since a trace has no
// real speculative execution to fall back on.
type FrontendMode uint8

// Supported front-end modes.
const (
	FrontendExecutionDriven FrontendMode = iota
	FrontendTrace
	FrontendMemtrace
)

// AdjustableFTQMode selects the adaptive-depth formula (spec.md §4.4).
type AdjustableFTQMode int

// Adaptive FTQ depth modes.
const (
	// AdjustableFTQDisabled leaves ftq_ft_num fixed at BlockNum.
	AdjustableFTQDisabled AdjustableFTQMode = 0
	// AdjustableFTQUtilityOnly is UFTQ-AUR.
	AdjustableFTQUtilityOnly AdjustableFTQMode = 1
	// AdjustableFTQTimelinessOnly is UFTQ-ATR.
	AdjustableFTQTimelinessOnly AdjustableFTQMode = 2
	// AdjustableFTQCombined is UFTQ-ATR-AUR.
	AdjustableFTQCombined AdjustableFTQMode = 3
)

// Config holds the decoupled front-end's fixed-at-init configuration
// constants (spec.md §6), following the same JSON-loadable shape as
// timing/latency.TimingConfig.
type Config struct {
	// BlockNum is FE_FTQ_BLOCK_NUM: the fixed FTQ depth bound used when
	// FDIPAdjustableFTQ is AdjustableFTQDisabled, and the starting depth
	// otherwise.
	BlockNum uint64 `json:"ftq_block_num"`

	// MinBlockNum and MaxBlockNum are UFTQ_MIN_FTQ_BLOCK_NUM and
	// UFTQ_MAX_FTQ_BLOCK_NUM: clamp bounds for the adaptive controller.
	MinBlockNum uint64 `json:"uftq_min_ftq_block_num"`
	MaxBlockNum uint64 `json:"uftq_max_ftq_block_num"`

	// TakenCFsPerCycle is FE_FTQ_TAKEN_CFS_PER_CYCLE.
	TakenCFsPerCycle uint64 `json:"ftq_taken_cfs_per_cycle"`

	// BytesPerCycle is FE_FTQ_BYTES_PER_CYCLE.
	BytesPerCycle uint64 `json:"ftq_bytes_per_cycle"`

	// ICacheLineSize is ICACHE_LINE_SIZE, in bytes.
	ICacheLineSize uint64 `json:"icache_line_size"`

	// FDIPAdjustableFTQ selects the adaptive-depth formula.
	FDIPAdjustableFTQ AdjustableFTQMode `json:"fdip_adjustable_ftq"`

	// FDIPBPConfidence gates the prefetcher re-anchor notification in
	// Context.FetchFT (spec.md §4.5).
	FDIPBPConfidence bool `json:"fdip_bp_confidence"`

	// Mode selects the external front-end flavor.
	Mode FrontendMode `json:"frontend_mode"`

	// WatchdogTicks is the number of consecutive no-progress producer
	// ticks before the forward-progress watchdog aborts (spec.md §7).
	WatchdogTicks uint64 `json:"watchdog_ticks"`
}

// DefaultConfig returns 64B I-cache lines, 32 bytes and 1 taken CF per
// cycle, and an FTQ depth bound of 32 FTs (adaptive range [4, 128], with
// the adaptive controller disabled), the execution-driven front-end mode,
// and a 100000-tick watchdog.
func DefaultConfig() *Config {
	return &Config{
		BlockNum:          32,
		MinBlockNum:       4,
		MaxBlockNum:       128,
		TakenCFsPerCycle:  1,
		BytesPerCycle:     32,
		ICacheLineSize:    64,
		FDIPAdjustableFTQ: AdjustableFTQDisabled,
		FDIPBPConfidence:  false,
		Mode:              FrontendExecutionDriven,
		WatchdogTicks:     100000,
	}
}

// LoadConfig loads a Config from a JSON file, starting from DefaultConfig
// so unspecified fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoupled front-end config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse decoupled front-end config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize decoupled front-end config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write decoupled front-end config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.BlockNum == 0 {
		return fmt.Errorf("ftq_block_num must be > 0")
	}
	if c.MinBlockNum == 0 {
		return fmt.Errorf("uftq_min_ftq_block_num must be > 0")
	}
	if c.MinBlockNum > c.MaxBlockNum {
		return fmt.Errorf("uftq_min_ftq_block_num must be <= uftq_max_ftq_block_num")
	}
	if c.BlockNum < c.MinBlockNum || c.BlockNum > c.MaxBlockNum {
		return fmt.Errorf("ftq_block_num must be within [uftq_min_ftq_block_num, uftq_max_ftq_block_num]")
	}
	if c.TakenCFsPerCycle == 0 {
		return fmt.Errorf("ftq_taken_cfs_per_cycle must be > 0")
	}
	if c.BytesPerCycle == 0 {
		return fmt.Errorf("ftq_bytes_per_cycle must be > 0")
	}
	if c.ICacheLineSize == 0 {
		return fmt.Errorf("icache_line_size must be > 0")
	}
	if c.FDIPAdjustableFTQ < AdjustableFTQDisabled || c.FDIPAdjustableFTQ > AdjustableFTQCombined {
		return fmt.Errorf("fdip_adjustable_ftq must be one of 0,1,2,3")
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
