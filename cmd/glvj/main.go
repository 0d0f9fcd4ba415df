// Command glvj renders a glvj project: beat synced shader stages with live
// reloading of their sources.
//
//	glvj [flags] project.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/soypat/glvj/config"
	"github.com/soypat/glvj/glbuild/glsllib"
	"github.com/soypat/glvj/glrun"
	"github.com/soypat/glvj/render"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		verbose   bool
		watch     = true
		pollEvery = render.DefaultPollEvery
		bpm       float64
		listLibs  bool
		printFrag string
	)
	flag.BoolVar(&verbose, "v", verbose, "Enable debug logging")
	flag.BoolVar(&watch, "watch", watch, "Use filesystem notifications to detect shader edits")
	flag.IntVar(&pollEvery, "poll", pollEvery, "Frames between shader change checks")
	flag.Float64Var(&bpm, "bpm", bpm, "Override the project tempo")
	flag.BoolVar(&listLibs, "libs", listLibs, "List the built-in GLSL library files and exit")
	flag.StringVar(&printFrag, "print", printFrag, "Print the composed fragment shader of the named stage and exit, \"final_stage\" for the final stage")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] project.{toml,yaml}\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if listLibs {
		for _, name := range glsllib.Names() {
			fmt.Println(name)
		}
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	err := run(flag.Arg(0), log, watch, pollEvery, bpm, printFrag)
	if err != nil {
		log.Error("glvj failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(path string, log *slog.Logger, watch bool, pollEvery int, bpm float64, printStage string) error {
	project, err := config.Load(path)
	if err != nil {
		return err
	}
	if bpm > 0 {
		project.BPM = bpm
	}
	pl, err := render.NewPipeline(project, render.PipelineConfig{
		PollEvery: pollEvery,
		Watch:     watch && printStage == "",
		Log:       log,
	})
	if err != nil {
		return err
	}
	defer pl.Close()

	if printStage != "" {
		for _, s := range pl.Stages() {
			if s.Label() == printStage {
				fmt.Print(s.FragmentSource())
				return nil
			}
		}
		if err := pl.Disabled(printStage); err != nil {
			return fmt.Errorf("stage %q disabled: %w", printStage, err)
		}
		return fmt.Errorf("no stage %q", printStage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cfg := glrun.ConfigFromView(project.View)
	cfg.Title = "glvj - " + path
	cfg.Log = log
	log.Info("running", slog.String("project", path), slog.Float64("bpm", project.BPM), slog.Int("stages", len(pl.Stages())))
	return glrun.Run(ctx, pl, cfg)
}
