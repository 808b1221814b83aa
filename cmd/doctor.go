package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/taskfile"
)

// doctorCommand prints the effective configuration and checks that the
// store, the task file and the log directory are usable.
func doctorCommand(ctx context.Context, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("todo doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	example := fs.Bool("example", false, "Print an example config file and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *example {
		fmt.Fprint(stdout, config.ExampleConfig())
		return nil
	}

	cfg := cws.Config
	fmt.Fprintln(stdout, "todo doctor")
	fmt.Fprintln(stdout, "===========")
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Config files:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(stdout, "  (none, using defaults)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(stdout, "  %s\n", f)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Settings:")
	for _, s := range cws.Settings() {
		fmt.Fprintf(stdout, "  %-20s %-30s (%s)\n", s.Name, s.Value, s.Source)
	}
	fmt.Fprintln(stdout)

	allOK := checkStore(ctx, cfg)
	if cfg.Store.Driver == store.DriverJSON {
		if !checkTaskFile(cfg.Store.JSONPath) {
			allOK = false
		}
	}
	if !checkLogDir(cfg.LogDir) {
		allOK = false
	}

	if allOK {
		fmt.Fprintln(stdout, "✅ All checks passed.")
		return nil
	}
	fmt.Fprintln(stdout, "⚠️  Some checks failed.")
	return errors.New("doctor checks failed")
}

func checkStore(ctx context.Context, cfg *config.Config) bool {
	fmt.Fprintf(stdout, "Store (%s):\n", cfg.Store.Driver)
	logger, err := cliLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ Logging: %v\n", err)
		return false
	}
	opts := cfg.StoreOptions()
	opts.Logger = logger
	opts.Watch = false
	s, err := store.Open(ctx, opts)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		fmt.Fprintln(stdout)
		return false
	}
	defer s.Close()

	if p, ok := s.(interface{ Path() string }); ok {
		fmt.Fprintf(stdout, "  Path: %s\n", p.Path())
	}
	fmt.Fprintln(stdout, "  ✅ OK")
	fmt.Fprintln(stdout)
	return true
}

func checkTaskFile(path string) bool {
	fmt.Fprintf(stdout, "Task file: %s\n", path)
	defer fmt.Fprintln(stdout)

	f, err := taskfile.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(stdout, "  ⚠️  Not found (created on the first write)")
		return true
	case err != nil:
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		return false
	}
	fmt.Fprintf(stdout, "  ✅ Valid (%d tasks)\n", len(f.Tasks))
	return true
}

func checkLogDir(dir string) bool {
	fmt.Fprintf(stdout, "Log dir: %s\n", dir)
	defer fmt.Fprintln(stdout)

	runs, err := logging.FindLogRuns(dir)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		return false
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "  ⚠️  No run logs yet")
		return true
	}
	fmt.Fprintf(stdout, "  ✅ %d run logs, latest %s\n", len(runs), runs[0].RunID)
	return true
}
