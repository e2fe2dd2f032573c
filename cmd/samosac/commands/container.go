package commands

import (
	"os"
	"path/filepath"

	"github.com/npillmayer/schuko/tracing"
	"github.com/samber/do"

	"github.com/lgtm-migrator/samosac-jvm/internal/cache"
	"github.com/lgtm-migrator/samosac-jvm/internal/config"
	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/driver"
	"github.com/lgtm-migrator/samosac-jvm/internal/playground"
)

// NewInjector wires the services of one CLI invocation for the project
// rooted at dir.
func NewInjector(dir string) *do.Injector {
	i := do.New()

	do.Provide(i, func(i *do.Injector) (*config.Config, error) {
		return config.Load(dir)
	})

	do.Provide(i, func(i *do.Injector) (tracing.Trace, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if err := diag.SetLevel(cfg.Trace.Level); err != nil {
			return nil, err
		}
		return diag.T(), nil
	})

	do.Provide(i, func(i *do.Injector) (*cache.Cache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.Build.Cache {
			return nil, nil
		}
		path := cfg.Build.CachePath
		if path != cache.Memory && !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if path != cache.Memory {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
		}
		return cache.Open(path)
	})

	do.Provide(i, func(i *do.Injector) (*driver.Driver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		trace := do.MustInvoke[tracing.Trace](i)
		c := do.MustInvoke[*cache.Cache](i)
		return driver.New(cfg, c, trace), nil
	})

	do.Provide(i, func(i *do.Injector) (*playground.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return playground.New(do.MustInvoke[*driver.Driver](i), playground.WithAllowedOrigins(cfg.Serve.AllowedOrigins...)), nil
	})

	return i
}

// withDriver runs fn with the project's driver and releases the
// injector's services afterwards.
func withDriver(fn func(d *driver.Driver) error) error {
	i := NewInjector(".")
	defer i.Shutdown()
	d, err := do.Invoke[*driver.Driver](i)
	if err != nil {
		return err
	}
	return fn(d)
}
