package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/samber/do"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/cache"
	"github.com/lgtm-migrator/samosac-jvm/internal/driver"
)

// BuildCommand compiles the named source files, or every source file
// below the named directories (default "."), into the output directory.
func BuildCommand(args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	return withDriver(func(d *driver.Driver) error {
		var paths []string
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				paths = append(paths, arg)
				continue
			}
			found, err := d.FindSources(arg)
			if err != nil {
				return err
			}
			paths = append(paths, found...)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no %s files found", driver.SourceExt)
		}

		results, err := d.BuildAll(context.Background(), paths)
		if err != nil {
			return err
		}
		for _, res := range results {
			note := ""
			if res.Cached {
				note = ", cached"
			}
			fmt.Printf("built %s -> %s (%s%s)\n", res.SourcePath, res.OutputPath, humanize.Bytes(uint64(res.Size)), note)
		}
		return nil
	})
}

// CheckCommand parses and type-checks source files.
func CheckCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: samosac check <file%s>...", driver.SourceExt)
	}
	return withDriver(func(d *driver.Driver) error {
		for _, path := range args {
			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := d.Check(path, string(source)); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", path)
		}
		return nil
	})
}

// DisCommand prints the disassembly of a source file or compiled module.
func DisCommand(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: samosac dis <file>")
	}
	return withDriver(func(d *driver.Driver) error {
		m, err := d.Load(context.Background(), args[0])
		if err != nil {
			return err
		}
		return bytecode.Disassemble(os.Stdout, m)
	})
}

// CacheCommand reports on or clears the build cache.
func CacheCommand(args []string) error {
	if len(args) != 1 || (args[0] != "stats" && args[0] != "clear") {
		return fmt.Errorf("usage: samosac cache stats|clear")
	}
	i := NewInjector(".")
	defer i.Shutdown()
	c, err := do.Invoke[*cache.Cache](i)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("the build cache is disabled")
	}
	ctx := context.Background()
	if args[0] == "clear" {
		return c.Clear(ctx)
	}
	s, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d entries, %s, %s hits\n", c.Path(), s.Entries, humanize.Bytes(uint64(s.Bytes)), humanize.Comma(s.Hits))
	return nil
}
