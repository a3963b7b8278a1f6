package abi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nathanjent/legendsof1f600/config"
	"github.com/nathanjent/legendsof1f600/legends"
)

var (
	initOnce   sync.Once
	defaultExp *Exports
	initErr    error
)

// Init builds the process-wide Exports used by the shared library from the
// file named in LEGENDS_CONFIG. It is safe to call multiple times; only the
// first call's allocator is used.
func Init(alloc Allocator) (*Exports, error) {
	initOnce.Do(func() {
		defaultExp, initErr = build(alloc)
	})
	return defaultExp, initErr
}

func build(alloc Allocator) (*Exports, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.Build(false)
	if err != nil {
		return nil, err
	}
	lib, err := legends.New(cfg.LibraryOptions(logger.Named("legends"))...)
	if err != nil {
		return nil, err
	}
	logger.Debug("library initialized", zap.String("version", legends.Version))
	return New(lib, alloc, logger.Named("abi")), nil
}
