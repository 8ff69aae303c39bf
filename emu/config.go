package emu

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"oamdma/hw"
)

type Config struct {
	Memory    MemoryConfig    `toml:"memory"`
	Processor ProcessorConfig `toml:"processor"`
	Sim       SimConfig       `toml:"sim"`
	Trace     TraceConfig     `toml:"trace"`
}

type MemoryConfig struct {
	WaitStates int            `toml:"wait_states"`
	Regions    []RegionConfig `toml:"regions"`
}

// RegionConfig overrides the wait states of the inclusive range [Start, End].
type RegionConfig struct {
	Start      uint16 `toml:"start"`
	End        uint16 `toml:"end"`
	WaitStates int    `toml:"wait_states"`
}

type ProcessorConfig struct {
	IdleAddr uint16 `toml:"idle_addr"`
}

type SimConfig struct {
	// MaxCycles bounds the number of cycles a transfer, cooldown included,
	// may take. 0 disables the limit.
	MaxCycles int64 `toml:"max_cycles"`

	// Workers is the number of systems run concurrently by a sweep. 0 means
	// one per CPU.
	Workers int `toml:"workers"`
}

type TraceConfig struct {
	Format string `toml:"format"` // "text" or "json"
}

const (
	TraceText = "text"
	TraceJSON = "json"
)

func DefaultConfig() Config {
	return Config{
		Processor: ProcessorConfig{IdleAddr: 0x8000},
		Sim:       SimConfig{MaxCycles: 100_000},
		Trace:     TraceConfig{Format: TraceText},
	}
}

// LoadConfig reads a TOML configuration file. Missing keys keep their default
// value, unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown keys %q", path, undec)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteConfig writes cfg in TOML format.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func (cfg Config) Validate() error {
	var mc hw.MemCtl
	cfg.applyMemory(&mc)
	if err := mc.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}

	switch {
	case cfg.Sim.MaxCycles < 0:
		return fmt.Errorf("sim: negative max_cycles: %d", cfg.Sim.MaxCycles)
	case cfg.Sim.Workers < 0:
		return fmt.Errorf("sim: negative workers: %d", cfg.Sim.Workers)
	}

	switch cfg.Trace.Format {
	case TraceText, TraceJSON:
	default:
		return fmt.Errorf("trace: unknown format %q", cfg.Trace.Format)
	}
	return nil
}

// Apply configures the memory controller and the processor of s.
func (cfg Config) Apply(s *hw.System) {
	cfg.applyMemory(&s.MemCtl)
	s.CPU.IdleAddr = cfg.Processor.IdleAddr
}

func (cfg Config) applyMemory(mc *hw.MemCtl) {
	mc.WaitStates = cfg.Memory.WaitStates
	mc.Regions = mc.Regions[:0]
	for _, r := range cfg.Memory.Regions {
		mc.Regions = append(mc.Regions, hw.WaitRegion{
			Start:      r.Start,
			End:        r.End,
			WaitStates: r.WaitStates,
		})
	}
}
