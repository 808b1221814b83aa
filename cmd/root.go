// Package cmd implements the CLI command structure for todo.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/dispatch"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/repository"
	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/task"
	"github.com/nibzard/todo-go/internal/taskfile"
	"github.com/nibzard/todo-go/internal/ui"
	"github.com/nibzard/todo-go/internal/usecase"
	"github.com/nibzard/todo-go/internal/viewstate"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the todo CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "ls":
		return lsCommand(ctx, cfg, remainingArgs)
	case "add":
		return addCommand(ctx, cfg, remainingArgs)
	case "toggle":
		return toggleCommand(ctx, cfg, remainingArgs)
	case "rm":
		return rmCommand(ctx, cfg, remainingArgs)
	case "export":
		return exportCommand(ctx, cfg, remainingArgs)
	case "import":
		return importCommand(ctx, cfg, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cws, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// session is an open store with the use cases built on top of it.
type session struct {
	store  store.Store
	uc     usecase.Set
	logger *log.Logger
}

func openSession(ctx context.Context, cfg *config.Config, logger *log.Logger) (*session, error) {
	opts := cfg.StoreOptions()
	opts.Logger = logger
	s, err := store.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &session{
		store:  s,
		uc:     usecase.New(repository.New(s)),
		logger: logger,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// tasks reads a single snapshot of the task list.
func (s *session) tasks(ctx context.Context) ([]task.Model, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snap, ok := <-s.uc.Get(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("task stream closed")
	}
	if snap.Err != nil {
		return nil, fmt.Errorf("loading tasks: %w", snap.Err)
	}
	return snap.Tasks, nil
}

// cliLogger logs to stderr for one-shot commands.
func cliLogger(cfg *config.Config) (*log.Logger, error) {
	opts, err := cfg.LogOptions()
	if err != nil {
		return nil, err
	}
	opts.Prefix = ""
	return logging.New(stderr, opts), nil
}

func withSession(ctx context.Context, cfg *config.Config, fn func(*session) error) error {
	logger, err := cliLogger(cfg)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			logger.Warn("closing store", "err", closeErr)
		}
	}()
	return fn(sess)
}

// tuiCommand runs the interactive task list.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todo tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noAltScreen := fs.Bool("no-alt-screen", false, "Render inline instead of in the alternate screen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	runLog, err := logging.NewRunLogger(cfg.LogDir)
	if err != nil {
		return err
	}
	defer runLog.Close()

	logOpts, err := cfg.LogOptions()
	if err != nil {
		return err
	}
	logger := runLog.Logger(logOpts)
	logger.Info("starting", "version", Version, "driver", cfg.Store.Driver, "run", runLog.RunID)

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store failed", "err", err)
		return err
	}
	defer sess.Close()

	exec := dispatch.New(cfg.UI.Workers, logger)
	defer exec.Close()

	ctrl := viewstate.New(sess.uc, viewstate.Options{
		Linger:   cfg.UI.Linger(),
		Executor: exec,
		Logger:   logger,
	})
	defer ctrl.Close()

	opts := []ui.TUIOption{ui.WithAltScreen(!*noAltScreen)}
	if stdout != io.Writer(os.Stdout) {
		opts = append(opts, ui.WithIO(stdin, stdout), ui.WithAltScreen(false))
	}
	err = ui.Run(ctx, ctrl, opts...)
	ctrl.Close()

	stats := exec.Stats()
	for _, jobErr := range exec.Errors() {
		logger.Warn("intent error", "err", jobErr)
	}
	logger.Info("stopped", "intents", stats.Completed, "failed", stats.Failed)
	return err
}

// lsCommand prints the task list once.
func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return withSession(ctx, cfg, func(s *session) error {
		tasks, err := s.tasks(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(stdout, "No tasks.")
			return nil
		}
		for _, t := range tasks {
			printTask(stdout, t)
		}
		return nil
	})
}

func addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if task.IsBlank(text) {
		return errors.New("task text is empty")
	}
	return withSession(ctx, cfg, func(s *session) error {
		if err := s.uc.Add(ctx, task.Model{Task: text}); err != nil {
			return fmt.Errorf("adding task: %w", err)
		}
		fmt.Fprintf(stdout, "Added: %s\n", text)
		return nil
	})
}

func toggleCommand(ctx context.Context, cfg *config.Config, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, func(s *session) error {
		tasks, err := s.tasks(ctx)
		if err != nil {
			return err
		}
		t, ok := task.Find(tasks, id)
		if !ok {
			return fmt.Errorf("task %d not found", id)
		}
		t = t.Toggled()
		if err := s.uc.Update(ctx, t); err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		printTask(stdout, t)
		return nil
	})
}

// rmCommand deletes a task. Deleting a missing id is not an error.
func rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, func(s *session) error {
		if err := s.uc.Delete(ctx, task.Model{ID: id}); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		fmt.Fprintf(stdout, "Deleted task %d\n", id)
		return nil
	})
}

// exportCommand writes the task list as a task file, to stdout when no
// path is given.
func exportCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	return withSession(ctx, cfg, func(s *session) error {
		tasks, err := s.tasks(ctx)
		if err != nil {
			return err
		}
		f := taskfile.FromTasks(tasks)
		if len(args) == 0 {
			return f.Encode(stdout)
		}
		if err := f.Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported %d tasks to %s\n", len(f.Tasks), args[0])
		return nil
	})
}

// importCommand validates a task file and adds each of its tasks. Ids in
// the file are not kept; the store assigns new ones.
func importCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: todo import <file>")
	}
	f, err := taskfile.Load(args[0])
	if err != nil {
		return err
	}
	return withSession(ctx, cfg, func(s *session) error {
		for _, t := range f.Models() {
			if err := s.uc.Add(ctx, task.Model{Task: t.Task, Selected: t.Selected}); err != nil {
				return fmt.Errorf("importing task %d: %w", t.ID, err)
			}
		}
		fmt.Fprintf(stdout, "Imported %d tasks\n", len(f.Tasks))
		return nil
	})
}

// tailCommand tails the latest run log.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todo tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath, err := logging.FindLatestLog(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("finding latest log: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No log files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)

	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}

func versionCommand() error {
	fmt.Fprintf(stdout, "todo version %s\n", Version)
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one task id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

func printTask(w io.Writer, t task.Model) {
	mark := " "
	if t.Selected {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %d %s\n", mark, t.ID, t.Task)
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todo - a small task list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todo [options] [command] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui             Open the task list (default command)")
	fmt.Fprintln(w, "  ls              Print all tasks")
	fmt.Fprintln(w, "  add <text>      Add a task")
	fmt.Fprintln(w, "  toggle <id>     Mark a task done or not done")
	fmt.Fprintln(w, "  rm <id>         Delete a task")
	fmt.Fprintln(w, "  export [file]   Write tasks as JSON (stdout if no file)")
	fmt.Fprintln(w, "  import <file>   Add every task from a JSON task file")
	fmt.Fprintln(w, "  tail            Show the latest run log")
	fmt.Fprintln(w, "  doctor          Show the effective config and check the store")
	fmt.Fprintln(w, "  version         Show version information")
	fmt.Fprintln(w, "  help            Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tui Options:")
	fmt.Fprintln(w, "  -no-alt-screen")
	fmt.Fprintln(w, "        Render inline instead of in the alternate screen")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor Options:")
	fmt.Fprintln(w, "  -example")
	fmt.Fprintln(w, "        Print an example config file and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options:")
	fmt.Fprintln(w, "  -f, -follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}
