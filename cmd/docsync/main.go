// Package main is the entry point for the docsync command, a small
// front-end over the document synchronization engine. It tracks one
// file and reports external changes, or rewrites the file through the
// engine's closed-document update path.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/dshills/docsync/internal/document"
	"github.com/dshills/docsync/internal/registry"
	"github.com/dshills/docsync/internal/source"
	"github.com/dshills/docsync/internal/watcher"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	setText   string
	fromStdin bool
	poll      bool
	interval  time.Duration
	noColor   bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("docsync", flag.ContinueOnError)
	var opts options
	var configPath string
	var showVersion bool
	flags.StringVar(&opts.setText, "set-text", "", "Replace the file's text through the sync engine and exit")
	flags.BoolVar(&opts.fromStdin, "stdin", false, "Read replacement text from stdin and exit")
	flags.BoolVar(&opts.poll, "poll", false, "Use the polling watcher backend instead of fsnotify")
	flags.DurationVar(&opts.interval, "interval", 500*time.Millisecond, "Polling interval (with --poll)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVarP(&configPath, "config", "c", "", "Path to JSON configuration file")
	flags.BoolVar(&showVersion, "version", false, "Show version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if showVersion {
		fmt.Printf("docsync %s (%s)\n", version, commit)
		return 0
	}

	if configPath != "" {
		if err := applyConfig(configPath, flags, &opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if opts.noColor {
		color.NoColor = true
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: docsync [flags] FILE")
		flags.PrintDefaults()
		return 2
	}
	path := flags.Arg(0)

	backend, cleanup, err := newBackend(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start watcher backend: %v\n", err)
		return 1
	}
	defer cleanup()

	reg := registry.New(backend)
	defer reg.DisposeAll()

	if opts.fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading stdin: %v\n", err)
			return 1
		}
		return setText(reg, path, string(data))
	}
	if flags.Changed("set-text") {
		return setText(reg, path, opts.setText)
	}
	return watch(reg, path)
}

// applyConfig fills in options from a JSON config file. Flags given on
// the command line win over config values.
func applyConfig(path string, flags *flag.FlagSet, opts *options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config %s: not valid JSON", path)
	}

	if v := gjson.GetBytes(data, "poll"); v.Exists() && !flags.Changed("poll") {
		opts.poll = v.Bool()
	}
	if v := gjson.GetBytes(data, "interval"); v.Exists() && !flags.Changed("interval") {
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return fmt.Errorf("config %s: interval: %w", path, err)
		}
		opts.interval = d
	}
	if v := gjson.GetBytes(data, "no_color"); v.Exists() && !flags.Changed("no-color") {
		opts.noColor = v.Bool()
	}
	return nil
}

func newBackend(opts options) (watcher.Backend, func(), error) {
	if opts.poll {
		b := watcher.NewPollBackend(watcher.WithInterval(opts.interval))
		return b, func() { _ = b.Close() }, nil
	}
	b, err := watcher.NewFSNotifyBackend()
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}

// setText rewrites path through a closed document so the write goes
// out atomically and the engine's bookkeeping stays consistent.
func setText(reg *registry.Registry, path, text string) int {
	doc, err := reg.Create(path, nil, document.KindFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := doc.UpdateText(context.Background(), text); err != nil {
		fmt.Fprintf(os.Stderr, "Error: update %s: %v\n", path, err)
		return 1
	}
	color.Green("updated %s (%d bytes)", doc.Path(), len(text))
	return 0
}

// watch tracks path and reports every external change until
// interrupted.
func watch(reg *registry.Registry, path string) int {
	changes := make(chan struct{}, 16)
	doc, err := reg.Create(path, nil, document.KindFile,
		document.WithUpdatedOnDiskHandler(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	res, err := doc.TextSource().ReadSync(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", path, err)
		return 1
	}
	color.Cyan("watching %s", doc.Path())
	printVersion(res.Version, len(res.Text))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-signals:
			fmt.Println()
			return 0
		case <-changes:
			res, err := doc.TextSource().ReadSync(ctx)
			if err != nil {
				color.Red("read failed: %v", err)
				continue
			}
			color.Yellow("changed %s", doc.Path())
			printVersion(res.Version, len(res.Text))
		}
	}
}

func printVersion(v source.Version, size int) {
	fmt.Printf("  fingerprint=%016x modtime=%s size=%d\n",
		v.Fingerprint, v.ModTime.Format(time.RFC3339), size)
}
