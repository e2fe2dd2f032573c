// cmd/samosac/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"

	"github.com/lgtm-migrator/samosac-jvm/cmd/samosac/commands"
)

const VERSION = "0.3.0"

// Build variables - can be set during build with ldflags
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.SetFlags(0)
	log.SetPrefix(errorPrefix())

	if len(args) == 0 {
		showUsage()
		return 2
	}

	var err error
	switch args[0] {
	case "help", "-h", "--help":
		showUsage()
		return 0
	case "version", "-v", "--version":
		showVersion()
		return 0
	case "init":
		err = commands.InitCommand(args[1:])
	case "build":
		err = commands.BuildCommand(args[1:])
	case "check":
		err = commands.CheckCommand(args[1:])
	case "dis":
		err = commands.DisCommand(args[1:])
	case "run":
		err = commands.RunCommand(args[1:])
	case "serve":
		err = commands.ServeCommand(args[1:])
	case "cache":
		err = commands.CacheCommand(args[1:])
	default:
		log.Printf("unknown command %q", args[0])
		showUsage()
		return 2
	}
	if err != nil {
		log.Print(err)
		return 1
	}
	return 0
}

// errorPrefix colours the prefix when stderr is a terminal.
func errorPrefix() string {
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "\x1b[31merror:\x1b[0m "
	}
	return "error: "
}

func showVersion() {
	fmt.Printf("samosac %s (%s, commit %s, %s/%s)\n", VERSION, BuildDate, GitCommit, runtime.GOOS, runtime.GOARCH)
}

func showUsage() {
	fmt.Println("samosac - compiler for the samosa language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  samosac run <file>         Run a source file or compiled .smc module")
	fmt.Println("  samosac check <file>...    Type-check without generating code")
	fmt.Println("  samosac dis <file>         Print the bytecode of a source file or module")
	fmt.Println("  samosac build [path]...    Compile sources into the output directory")
	fmt.Println("  samosac serve [-addr a] [-allow-origin o]  Start the websocket playground")
	fmt.Println()
	fmt.Println("Project Management:")
	fmt.Println("  samosac init [dir]         Write samosac.toml and a sample program")
	fmt.Println("  samosac cache stats|clear  Inspect or empty the build cache")
	fmt.Println("  samosac version            Print version information")
}
