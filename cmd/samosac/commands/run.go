package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/samber/do"

	"github.com/lgtm-migrator/samosac-jvm/internal/config"
	"github.com/lgtm-migrator/samosac-jvm/internal/driver"
	"github.com/lgtm-migrator/samosac-jvm/internal/playground"
)

// RunCommand executes a source file or compiled module.
func RunCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	maxSteps := fs.Int64("max-steps", -1, "instruction limit, 0 for none (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: samosac run [-max-steps n] <file>")
	}

	return withDriver(func(d *driver.Driver) error {
		if *maxSteps >= 0 {
			d.Config().Run.MaxSteps = *maxSteps
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		m, err := d.Load(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return d.Run(ctx, m, os.Stdout)
	})
}

// ServeCommand starts the websocket playground.
func ServeCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	var origins []string
	fs.Func("allow-origin", "additional browser origin allowed to connect (repeatable)", func(o string) error {
		origins = append(origins, o)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	i := NewInjector(".")
	defer i.Shutdown()
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return err
	}
	cfg.Serve.AllowedOrigins = append(cfg.Serve.AllowedOrigins, origins...)
	if *addr == "" {
		*addr = cfg.Serve.Addr
	}
	s, err := do.Invoke[*playground.Server](i)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	fmt.Printf("playground listening on ws://%s/ws\n", *addr)
	return playground.ListenAndServe(ctx, *addr, s)
}

const sampleProgram = `// Prints the first Fibonacci numbers.
let a: int = 0;
let b: int = 1;
let i: int = 0;
while i < 10 {
	println("fib(" + i + ") = " + a);
	next := a + b;
	a = b;
	b = next;
	i = i + 1;
}
`

// InitCommand writes a default samosac.toml and a sample program into
// the named directory.
func InitCommand(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := config.Save(dir, config.Default()); err != nil {
		return err
	}
	main := dir + string(os.PathSeparator) + "main" + driver.SourceExt
	if _, err := os.Stat(main); os.IsNotExist(err) {
		if err := os.WriteFile(main, []byte(sampleProgram), 0644); err != nil {
			return err
		}
	}
	fmt.Printf("initialised %s\n", dir)
	return nil
}
