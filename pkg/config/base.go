package config

import (
	_ "embed"
	"sync"
)

//go:embed base.yml
var baseYAML []byte

var (
	baseOnce sync.Once
	baseCfg  Config
	baseErr  error
)

// Base returns the built-in glob defaults appended when merge_defaults is set.
func Base() (Config, error) {
	baseOnce.Do(func() {
		baseCfg, baseErr = ParseBytes(baseYAML)
	})

	return baseCfg, baseErr
}
