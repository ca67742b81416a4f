// Package cmd implements the CLI command structure for taskboard.
package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nibzard/taskboard/internal/client"
	"github.com/nibzard/taskboard/internal/config"
	"github.com/nibzard/taskboard/internal/logging"
	"github.com/nibzard/taskboard/internal/server"
	"github.com/nibzard/taskboard/internal/service"
	"github.com/nibzard/taskboard/internal/store"
	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/ui"
	"github.com/nibzard/taskboard/internal/view"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries the loaded configuration and I/O streams for one invocation.
type app struct {
	cfg    *config.Config
	cws    *config.ConfigWithSources
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
}

// Run executes the taskboard CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("taskboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("loading config: %w", err)
	}
	a := &app{
		cfg:    cws.Config,
		cws:    cws,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	a.logger = logging.New(stderr, logging.Options{
		Level:      a.cfg.LogLevel,
		Format:     a.cfg.LogFormat,
		Timestamps: a.cfg.LogTimestamps,
		Caller:     a.cfg.LogCaller,
		Prefix:     logging.DefaultPrefix,
	})

	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return a.versionCommand()
	}

	// Default to serve when no subcommand is given
	subcommand := "serve"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "serve":
		return a.serveCommand(ctx, remainingArgs)
	case "tui":
		return a.tuiCommand(ctx, remainingArgs)
	case "ls":
		return a.lsCommand(ctx, remainingArgs)
	case "add":
		return a.addCommand(ctx, remainingArgs)
	case "done":
		return a.doneCommand(ctx, remainingArgs)
	case "rm":
		return a.rmCommand(ctx, remainingArgs)
	case "validate":
		return a.validateCommand(remainingArgs)
	case "export":
		return a.exportCommand(ctx, remainingArgs)
	case "config":
		return a.configCommand(remainingArgs)
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// newFlagSet returns a subcommand flag set writing to stderr.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("taskboard "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// openService builds the task service over the configured tasks file.
func (a *app) openService() *service.Service {
	st := store.NewFileStore(a.cfg.TasksFile,
		store.WithSchemaValidation(a.cfg.ValidateOnLoad),
		store.WithLockTimeout(a.cfg.LockTimeout()),
	)
	return service.New(st, service.WithLogger(a.logger))
}

func (a *app) defaultSort() view.SortMode {
	mode, err := view.ParseSortMode(a.cfg.DefaultSort)
	if err != nil {
		return view.DefaultSort
	}
	return mode
}

// serveCommand runs the HTTP server until ctx is canceled.
func (a *app) serveCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("serve")
	addr := fs.String("addr", a.cfg.ListenAddr, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(a.openService(),
		server.WithLogger(a.logger),
		server.WithDefaultSort(a.defaultSort()),
		server.WithShutdownTimeout(a.cfg.ShutdownTimeout()),
	)
	if err != nil {
		return err
	}
	a.logger.Info("serving tasks", "file", a.cfg.TasksFile)
	return srv.ListenAndServe(ctx, *addr)
}

// tuiCommand launches the terminal client.
func (a *app) tuiCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("tui")
	serverURL := fs.String("server", a.cfg.ServerURL, "Base URL of the taskboard server")
	local := fs.Bool("local", false, "Edit the tasks file directly instead of talking to a server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *local {
		return ui.RunTUI(ctx, a.openService(),
			ui.WithSort(a.defaultSort()),
			ui.WithSource(a.cfg.TasksFile),
		)
	}
	c, err := client.New(*serverURL)
	if err != nil {
		return err
	}
	return ui.RunTUI(ctx, c,
		ui.WithSort(a.defaultSort()),
		ui.WithSource(*serverURL),
	)
}

// lsCommand prints the board: pending tasks sorted, then completed ones.
func (a *app) lsCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("ls")
	sortFlag := fs.String("sort", string(a.defaultSort()), "Sort pending tasks by priority or date")
	asJSON := fs.Bool("json", false, "Print the raw task collection as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	mode, err := view.ParseSortMode(*sortFlag)
	if err != nil {
		return err
	}

	tasks, err := a.openService().List(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		if tasks == nil {
			tasks = []task.Task{}
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	board := view.NewBoard(tasks, mode)
	fmt.Fprintf(a.stdout, "To do (%d), sorted by %s\n", len(board.Pending), mode)
	if len(board.Pending) == 0 {
		fmt.Fprintln(a.stdout, "  No pending tasks.")
	}
	for _, t := range board.Pending {
		printTask(a.stdout, t)
	}
	fmt.Fprintf(a.stdout, "\nCompleted (%d)\n", len(board.Completed))
	for _, t := range board.Completed {
		printTask(a.stdout, t)
	}
	return nil
}

// addCommand creates a task from the command line.
func (a *app) addCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("add")
	desc := fs.String("d", "", "Description")
	priority := fs.String("p", "", "Priority (low, medium, high)")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := a.openService().Create(ctx, task.Draft{
		Title:       strings.Join(fs.Args(), " "),
		Description: *desc,
		Priority:    *priority,
		DueDate:     *due,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %s %q\n", created.ID, created.Title)
	return nil
}

// doneCommand marks a task completed, or pending again with -undo.
func (a *app) doneCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("done")
	undo := fs.Bool("undo", false, "Mark the task pending again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: taskboard done [-undo] <id>")
	}

	completed := !*undo
	updated, err := a.openService().Update(ctx, fs.Arg(0), task.Patch{IsCompleted: &completed})
	if err != nil {
		return err
	}
	state := "completed"
	if !updated.IsCompleted {
		state = "pending"
	}
	fmt.Fprintf(a.stdout, "%s %q is %s\n", updated.ID, updated.Title, state)
	return nil
}

// rmCommand deletes a task after confirmation.
func (a *app) rmCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("rm")
	yes := fs.Bool("y", false, "Delete without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: taskboard rm [-y] <id>")
	}

	svc := a.openService()
	t, err := svc.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !*yes && !a.confirm(fmt.Sprintf("Delete %q? [y/N] ", t.Title)) {
		fmt.Fprintln(a.stdout, "Cancelled")
		return nil
	}
	if err := svc.Delete(ctx, t.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s %q\n", t.ID, t.Title)
	return nil
}

func (a *app) confirm(prompt string) bool {
	fmt.Fprint(a.stdout, prompt)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// validateCommand checks a tasks file against the bundled schema.
func (a *app) validateCommand(args []string) error {
	fs := a.newFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}
	path := a.cfg.TasksFile
	if fs.NArg() == 1 {
		path = fs.Arg(0)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(a.stdout, "%s does not exist; it will be created on the first change\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read tasks file: %w", err)
	}

	result := store.ValidateBytes(data)
	if !result.Valid {
		fmt.Fprintf(a.stdout, "%s is invalid:\n", path)
		for _, e := range result.Errors {
			fmt.Fprintf(a.stdout, "  - %s\n", e)
		}
		return fmt.Errorf("%s failed validation with %d error(s)", path, len(result.Errors))
	}
	tasks, err := store.Decode(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s is valid (%d tasks)\n", path, len(tasks))
	return nil
}

// exportCommand writes the collection as JSON, YAML or TOML.
func (a *app) exportCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("export")
	format := fs.String("format", store.FormatJSON, "Output format (json, yaml, toml)")
	output := fs.String("o", "", "Write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tasks, err := a.openService().List(ctx)
	if err != nil {
		return err
	}
	data, err := store.Encode(tasks, *format)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(a.stdout, "Exported %d tasks to %s\n", len(tasks), *output)
	return nil
}

// configCommand prints the effective configuration or an example file.
func (a *app) configCommand(args []string) error {
	fs := a.newFlagSet("config")
	example := fs.Bool("example", false, "Print an example config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *example {
		_, err := io.WriteString(a.stdout, config.ExampleConfig())
		return err
	}

	cfg := a.cfg
	values := map[string]any{
		"tasks_file":               cfg.TasksFile,
		"validate_on_load":         cfg.ValidateOnLoad,
		"lock_timeout_seconds":     cfg.LockTimeoutSeconds,
		"listen_addr":              cfg.ListenAddr,
		"shutdown_timeout_seconds": cfg.ShutdownTimeoutSeconds,
		"default_sort":             cfg.DefaultSort,
		"server_url":               cfg.ServerURL,
		"log_level":                cfg.LogLevel,
		"log_format":               cfg.LogFormat,
		"log_timestamps":           cfg.LogTimestamps,
		"log_caller":               cfg.LogCaller,
	}
	if len(a.cws.Files) == 0 {
		fmt.Fprintln(a.stdout, "# no config file found")
	}
	for _, f := range a.cws.Files {
		fmt.Fprintf(a.stdout, "# read %s\n", f)
	}
	for _, field := range a.cws.Fields() {
		fmt.Fprintf(a.stdout, "%s = %v  # %s\n", field, formatValue(values[field]), a.cws.Sources[field])
	}
	return nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

// versionCommand prints version information.
func (a *app) versionCommand() error {
	fmt.Fprintf(a.stdout, "taskboard version %s\n", Version)
	return nil
}

func printTask(w io.Writer, t task.Task) {
	check := "[ ]"
	if t.IsCompleted {
		check = "[x]"
	}
	line := fmt.Sprintf("  %s %s  %s (%s)", check, t.ID, t.Title, t.Priority)
	if due := view.FormatDue(t); due != "" && !t.IsCompleted {
		line += "  due " + due
	}
	fmt.Fprintln(w, line)
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "taskboard - a single-user task board")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskboard [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve [-addr a]          Serve the web board and JSON API (default command)")
	fmt.Fprintln(w, "  tui [-server u] [-local] Launch the terminal client")
	fmt.Fprintln(w, "  ls [-sort m] [-json]     List tasks")
	fmt.Fprintln(w, "  add [-d -p -due] title   Create a task")
	fmt.Fprintln(w, "  done [-undo] <id>        Mark a task completed")
	fmt.Fprintln(w, "  rm [-y] <id>             Delete a task")
	fmt.Fprintln(w, "  validate [file]          Check a tasks file against the schema")
	fmt.Fprintln(w, "  export [-format f] [-o]  Export tasks as json, yaml or toml")
	fmt.Fprintln(w, "  config [-example]        Show the effective configuration")
	fmt.Fprintln(w, "  version                  Show version information")
	fmt.Fprintln(w, "  help                     Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
