// Package driver runs the compilation pipeline: cache lookup, parse,
// check, generate, verify, encode.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/errgroup"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/cache"
	"github.com/lgtm-migrator/samosac-jvm/internal/checker"
	"github.com/lgtm-migrator/samosac-jvm/internal/codegen"
	"github.com/lgtm-migrator/samosac-jvm/internal/config"
	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/vm"
)

const (
	SourceExt = ".sam"
	ModuleExt = ".smc"
)

// Result describes one compiled unit.
type Result struct {
	Name       string
	SourcePath string
	OutputPath string
	Module     *bytecode.Module
	Cached     bool
	Size       int64
	BuildTime  time.Duration
}

type Driver struct {
	cfg   *config.Config
	cache *cache.Cache
	trace tracing.Trace
}

// New returns a driver. A nil cache disables caching.
func New(cfg *config.Config, c *cache.Cache, trace tracing.Trace) *Driver {
	if trace == nil {
		trace = diag.T()
	}
	return &Driver{cfg: cfg, cache: c, trace: trace}
}

func (d *Driver) Config() *config.Config { return d.cfg }

// Check parses and type-checks source without generating code.
func (d *Driver) Check(name, source string) (*parser.Program, error) {
	prog, err := parser.ParseSource(name, source)
	if err != nil {
		return nil, err
	}
	r := diag.New(name, d.trace).WithSource(strings.Split(source, "\n"))
	if err := checker.New(r).Check(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// Compile turns source into a verified module, consulting the cache first.
func (d *Driver) Compile(ctx context.Context, name, source string) (*bytecode.Module, bool, error) {
	key := cache.Key(name, source)
	if d.cache != nil {
		m, ok, err := d.cache.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			d.trace.Debugf("cache hit for %s", name)
			return m, true, nil
		}
	}

	prog, err := d.Check(name, source)
	if err != nil {
		return nil, false, err
	}
	r := diag.New(name, d.trace).WithSource(strings.Split(source, "\n"))
	m, err := codegen.Generate(prog, codegen.WithUnitName(unitName(name)), codegen.WithReporter(r))
	if err != nil {
		return nil, false, err
	}
	if d.cfg.Run.Verify {
		if err := vm.Verify(m); err != nil {
			return nil, false, err
		}
	}
	if d.cache != nil {
		if err := d.cache.Put(ctx, key, m); err != nil {
			return nil, false, err
		}
	}
	return m, false, nil
}

// Load returns the module at path: a compiled module is decoded, a
// source file is compiled.
func (d *Driver) Load(ctx context.Context, path string) (*bytecode.Module, error) {
	if filepath.Ext(path) == ModuleExt {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		m, err := bytecode.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if d.cfg.Run.Verify {
			if err := vm.Verify(m); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, _, err := d.Compile(ctx, path, string(source))
	return m, err
}

// Build compiles the source file at path and writes the module to the
// configured output directory.
func (d *Driver) Build(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, cached, err := d.Compile(ctx, path, string(source))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := bytecode.Encode(&buf, m); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.cfg.Build.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out := filepath.Join(d.cfg.Build.OutputDir, unitName(path)+ModuleExt)
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}

	res := &Result{
		Name:       m.Name,
		SourcePath: path,
		OutputPath: out,
		Module:     m,
		Cached:     cached,
		Size:       int64(buf.Len()),
		BuildTime:  time.Since(start),
	}
	d.trace.Infof("built %s -> %s (%d bytes)", path, out, res.Size)
	return res, nil
}

// BuildAll builds independent units concurrently, at most
// cfg.Build.Jobs at a time. Results keep the order of paths.
func (d *Driver) BuildAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Build.Jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := d.Build(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run executes m with the configured step limit.
func (d *Driver) Run(ctx context.Context, m *bytecode.Module, out io.Writer) error {
	machine := vm.NewVM(m, vm.WithOutput(out), vm.WithMaxSteps(d.cfg.Run.MaxSteps))
	return machine.Run(ctx)
}

// FindSources lists the source files below dir, skipping hidden
// directories and the output directory.
func (d *Driver) FindSources(dir string) ([]string, error) {
	var files []string
	outDir := filepath.Clean(d.cfg.Build.OutputDir)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != dir && (strings.HasPrefix(info.Name(), ".") || filepath.Clean(path) == outDir) {
			return filepath.SkipDir
		}
		if !info.IsDir() && filepath.Ext(path) == SourceExt {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func unitName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
