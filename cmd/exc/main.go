// Command exc is the command-line driver for the Ex compiler: it parses,
// resolves, and type-checks a program and prints its diagnostics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/exc-lang/exc/compiler"
	"github.com/exc-lang/exc/incremental"
	"github.com/exc-lang/exc/internal/source"
)

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("EXC_LOG") == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func loadExecutor(log *zap.Logger, cachePath string, parallelism int) *incremental.Executor {
	exec, err := incremental.Load(cachePath, parallelism)
	if err != nil {
		log.Debug("starting with a cold cache", zap.String("cache", cachePath), zap.Error(err))
	}
	return exec
}

func rootArg(c *cli.Context) string {
	if c.NArg() > 0 {
		return c.Args().First()
	}
	return "input.ex"
}

func runOnce(c *cli.Context, log *zap.Logger) error {
	env := compiler.NewEnv()
	exec := loadExecutor(log, c.String("cache"), c.Int("parallelism"))
	if c.Bool("trace") {
		exec.Trace = incremental.NewTracer(os.Stderr)
	}

	rootPath := rootArg(c)
	rep, err := compiler.Compile(context.Background(), env, exec, rootPath)
	if err != nil {
		log.Error("compile cancelled", zap.Error(err))
		return err
	}

	fmt.Println("errors:")
	for _, line := range rep.Lines() {
		fmt.Println(line)
	}

	if err := exec.Save(c.String("cache")); err != nil {
		log.Warn("failed to persist cache", zap.Error(err))
	}

	rootAbs := env.Store.Path(env.Store.FileID(rootPath))
	for _, d := range rep.Diagnostics {
		if string(d.Kind) == "IOError" && d.Span.File == rootAbs {
			return cli.Exit("", 1)
		}
	}
	return nil
}

func watchAction(c *cli.Context) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	env := compiler.NewEnv()
	exec := loadExecutor(log, c.String("cache"), c.Int("parallelism"))
	if c.Bool("trace") {
		exec.Trace = incremental.NewTracer(os.Stderr)
	}

	rootPath := rootArg(c)

	compileAndPrint := func() {
		rep, err := compiler.Compile(context.Background(), env, exec, rootPath)
		if err != nil {
			log.Error("compile failed", zap.Error(err))
			return
		}
		fmt.Println("errors:")
		for _, line := range rep.Lines() {
			fmt.Println(line)
		}
	}
	compileAndPrint()

	watcher, err := source.NewWatcher(env.Store, func(path string) {
		exec.Invalidate(source.URL(path))
		compileAndPrint()
	})
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(rootPath); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return exec.Save(c.String("cache"))
}

func graphAction(c *cli.Context) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	env := compiler.NewEnv()
	exec := loadExecutor(log, c.String("cache"), c.Int("parallelism"))

	if _, err := compiler.Compile(context.Background(), env, exec, rootArg(c)); err != nil {
		return err
	}

	type node struct {
		URL  string   `yaml:"url"`
		Deps []string `yaml:"deps,omitempty"`
	}
	var graph []node
	for _, url := range exec.Queries() {
		graph = append(graph, node{URL: url, Deps: exec.Deps(url)})
	}

	out, err := yaml.Marshal(graph)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func main() {
	app := &cli.App{
		Name:  "exc",
		Usage: "a demand-driven, incremental compiler for the Ex language",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "trace", Value: true, Usage: "print one line per query execution"},
			&cli.StringFlag{Name: "cache", Value: ".incremental-cache", Usage: "path to the persisted query cache"},
			&cli.IntFlag{Name: "parallelism", Value: 0, Usage: "max concurrent queries (0 = GOMAXPROCS)"},
		},
		Action: func(c *cli.Context) error {
			log := newLogger()
			defer log.Sync() //nolint:errcheck
			return runOnce(c, log)
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "recompile on every change to a watched source file",
				Action: watchAction,
			},
			{
				Name:   "graph",
				Usage:  "dump the query dependency graph as YAML",
				Action: graphAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
