package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/omniscale/osmpipe"
	"github.com/omniscale/osmpipe/config"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/pipeline"
	"github.com/omniscale/osmpipe/stats"

	_ "github.com/omniscale/osmpipe/database/postgres"
	_ "github.com/omniscale/osmpipe/stages"
)

const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: osmpipe [options] --SOURCE [args] [--STAGE [args] ...]\n")
	fmt.Fprintf(w, "       osmpipe version\n\n")
	fmt.Fprintln(w, "Options:")
	flags := config.Flags(&config.Options{})
	flags.SetOutput(w)
	flags.PrintDefaults()
	fmt.Fprintln(w, "\nStages:")
	for _, reg := range pipeline.Registered() {
		name := "--" + reg.Name
		if reg.Usage != "" {
			name += " " + reg.Usage
		}
		fmt.Fprintf(w, "  %s\n  \t%s\n", name, reg.Help)
	}
	fmt.Fprintln(w, "\nExample:")
	fmt.Fprintln(w, "  osmpipe --read-xml in.osm.bz2 --bbox 52.6 13.2 52.4 13.5 --used-nodes --write-xml out.osm")
}

// Main runs osmpipe with args (without the program name) and returns the exit
// code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintln(stdout, osmpipe.Version)
		return exitOK
	}

	opts, err := config.Parse(args)
	if err == flag.ErrHelp {
		PrintUsage(stdout)
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprintln(stderr, "run osmpipe -h for usage")
		return exitConfig
	}
	if len(opts.Stages) == 0 {
		PrintUsage(stdout)
		return exitOK
	}

	switch {
	case opts.Debug:
		log.SetMinLevel(log.LDebug)
	case opts.Quiet:
		log.SetMinLevel(log.LWarn)
	}
	if opts.Httpprofile != "" {
		stats.StartHttpPProf(opts.Httpprofile)
	}

	stages, err := pipeline.Build(opts.Stages)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitConfig
	}
	p, err := pipeline.New(stages...)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitConfig
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	step := log.Step(strings.Join(names, " | "))
	if err := p.Run(ctx); err != nil {
		log.Printf("[error] %s", err)
		return exitError
	}
	step()
	return exitOK
}

func main() {
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
