package racache

import (
	"strconv"

	"github.com/grailbio/racache/internal/rerrors"
)

// Default configuration values, matching the original read-ahead
// translator's defaults.
const (
	DefaultPageSize  = 128 * 1024
	DefaultPageCount = 16
)

// Config holds the Cache's tunable parameters.
type Config struct {
	// PageSize is the page granularity in bytes.
	PageSize int64
	// PageCount is the read-ahead window size, in pages. 0 disables
	// read-ahead.
	PageCount int
}

// DefaultConfig returns the zero-configured Cache's defaults.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize, PageCount: DefaultPageCount}
}

// window returns the read-ahead window size in bytes: PageSize * PageCount.
func (c Config) window() int64 { return c.PageSize * int64(c.PageCount) }

func (c Config) validate() error {
	if c.PageSize <= 0 {
		return rerrors.E(rerrors.Invalid, "page-size must be positive")
	}
	if c.PageCount < 0 {
		return rerrors.E(rerrors.Invalid, "page-count must not be negative")
	}
	return nil
}

// ConfigFromOptions decodes a Config from a generic key-value option map, the
// way the original translator's init() reads its xlator options dictionary.
// Unrecognized keys are ignored; missing keys fall back to DefaultConfig.
func ConfigFromOptions(opts map[string]string) (Config, error) {
	cfg := DefaultConfig()
	if v, ok := opts["page-size"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, rerrors.E(rerrors.Invalid, "page-size", err)
		}
		cfg.PageSize = n
	}
	if v, ok := opts["page-count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, rerrors.E(rerrors.Invalid, "page-count", err)
		}
		cfg.PageCount = n
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// floorAlign rounds off down to the nearest multiple of align.
func floorAlign(off, align int64) int64 {
	return (off / align) * align
}

// ceilAlign rounds off up to the nearest multiple of align.
func ceilAlign(off, align int64) int64 {
	if off%align == 0 {
		return off
	}
	return floorAlign(off, align) + align
}
