// Command askdocs ingests documents into a persistent vector index and answers
// questions about them over a terminal chat, an HTTP API or one-shot commands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/adapters/filewatcher"
	"github.com/0xcro3dile/askdocs/internal/adapters/loader"
	"github.com/0xcro3dile/askdocs/internal/config"
	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
	"github.com/0xcro3dile/askdocs/internal/infrastructure/dropfolder"
	httpserver "github.com/0xcro3dile/askdocs/internal/infrastructure/http"
	"github.com/0xcro3dile/askdocs/internal/infrastructure/logger"
	"github.com/0xcro3dile/askdocs/internal/infrastructure/tui"
)

const usage = `Usage: askdocs [--config=askdocs.yaml] <command> [flags] [args]

Commands:
  serve            run the HTTP API (and the drop folder with --watch)
  chat [paths...]  ingest paths, then open the terminal chat
  ingest paths...  ingest files or directories
  search query     print the passages relevant to query
  reset            delete the persisted index
  init [path]      write the effective configuration to path (default askdocs.yaml)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "askdocs:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./askdocs.yaml or ~/.config/askdocs/config.yaml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	var (
		cfg *config.Config
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "init" {
		return initConfig(cfg, args)
	}

	// The chat UI owns the terminal, so logs only go to the file there.
	logOpts := logger.Options{Production: cfg.Log.Production, File: cfg.Log.File, Level: cfg.Log.Level}
	if cmd == "chat" {
		logOpts.Level = "error"
	}
	log, err := logger.New(logOpts)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "serve":
		return a.serve(ctx, args)
	case "chat":
		return a.chat(ctx, args)
	case "ingest":
		return a.ingest(ctx, args)
	case "search":
		return a.search(ctx, args)
	case "reset":
		return a.reset(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// initConfig writes cfg as YAML. API keys are left out.
func initConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path := "askdocs.yaml"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("init: %s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fmt.Println("Wrote", path)
	return nil
}

func (a *app) ingest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest: at least one file or directory is required")
	}

	sess, err := usecases.NewSession(ctx, a.index)
	if err != nil {
		return err
	}
	_, err = a.ingestPaths(ctx, sess, logger.NewPrinter(nil), fs.Args())
	return err
}

func (a *app) ingestPaths(ctx context.Context, sess *usecases.Session, p *logger.Printer, paths []string) (*entities.IngestReport, error) {
	start := time.Now()
	p.Step("Loading %d paths...", len(paths))
	files, err := loader.NewFileLoader(a.parser.SupportedExtensions()).LoadPaths(ctx, paths)
	if err != nil {
		return nil, err
	}
	p.Info("Loaded %d files", len(files))
	p.Elapsed("Loading", start)

	p.Step("Extracting, chunking and indexing...")
	report, err := a.svc.Ingest(ctx, sess, files)
	if report != nil {
		p.Report(report)
	}
	if err != nil {
		p.Alert("Ingest stopped: %v", err)
		return report, err
	}
	return report, nil
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.Parse(args)
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("search: query is required")
	}

	sess, err := usecases.NewSession(ctx, a.index)
	if err != nil {
		return err
	}
	passages, err := a.svc.Retrieve(ctx, sess, query)
	if err != nil {
		return err
	}
	p := logger.NewPrinter(nil)
	if len(passages) == 0 {
		p.Alert("No relevant passages")
		return nil
	}
	for i, ps := range passages {
		p.Success("[%d] %s", i+1, ps.SourceFile)
		fmt.Println(ps.Text)
		fmt.Println()
	}
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		fmt.Print("Delete every indexed document? [y/N] ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return nil
		}
	}

	sess, err := usecases.NewSession(ctx, a.index)
	if err != nil {
		return err
	}
	if err := a.svc.Reset(ctx, sess); err != nil {
		return err
	}
	logger.NewPrinter(nil).Success("Index deleted")
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	watch := fs.Bool("watch", a.cfg.DropFolder.Enabled, "ingest files dropped into the drop folder while chatting")
	fs.Parse(args)

	sess, err := usecases.NewSession(ctx, a.index)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("%d documents indexed", len(sess.ProcessedFiles()))
	if fs.NArg() > 0 {
		report, err := a.ingestPaths(ctx, sess, logger.NewPrinter(nil), fs.Args())
		if err != nil {
			return err
		}
		summary = fmt.Sprintf("%d new files, %d duplicates, %d new chunks; %d documents indexed",
			report.NewFiles, report.DuplicateFiles, report.NewChunks, len(sess.ProcessedFiles()))
	}

	if *watch {
		if err := a.startDropFolder(ctx, sess); err != nil {
			return err
		}
	}

	m := tui.New(tui.NewSessionChat(a.svc, sess), summary)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	watch := fs.Bool("watch", a.cfg.DropFolder.Enabled, "ingest files dropped into the drop folder")
	fs.Parse(args)

	sessions := httpserver.NewSessionStore(a.index, a.cfg.Server.SessionTTL)
	if *watch {
		sess, err := usecases.NewSession(ctx, a.index)
		if err != nil {
			return err
		}
		sessions.Save(sess)
		if err := a.startDropFolder(ctx, sess); err != nil {
			return err
		}
	}

	return httpserver.NewServer(a.svc, a.index, sessions, *addr, a.log).Start(ctx)
}

// startDropFolder ingests files dropped into the configured folder in the background.
func (a *app) startDropFolder(ctx context.Context, sess *usecases.Session) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.parser.SupportedExtensions(), a.log)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	folder := dropfolder.New(a.cfg.DropFolder.Dir, watcher,
		loader.NewFileLoader(a.parser.SupportedExtensions()), a.svc, sess,
		dropfolder.WithLogger(a.log),
		dropfolder.WithReportHandler(func(r *entities.IngestReport) {
			a.log.Info("drop folder ingest",
				zap.Int("new_files", r.NewFiles),
				zap.Int("new_chunks", r.NewChunks),
				zap.Bool("index_reset", r.IndexReset))
		}),
	)
	go func() {
		if err := folder.Run(ctx); err != nil {
			a.log.Error("drop folder stopped", zap.Error(err))
		}
	}()
	a.log.Info("drop folder enabled", zap.String("dir", a.cfg.DropFolder.Dir))
	return nil
}
