// Package main is a command-line Monte Carlo estimator for π and polygon areas.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/goccy/go-json"

	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/observability"
	"github.com/branched-services/go-montecarlo/internal/render"
	"github.com/branched-services/go-montecarlo/pkg/estimator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	target      string
	samples     int
	seed        uint64
	seeded      bool
	shapesFile  string
	jsonOut     bool
	scatter     string
	convergence string
	quiet       bool
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options

	fs := flag.NewFlagSet("montecarlo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.target, "target", "circle", "target name (circle, star, or a name from -shapes)")
	fs.IntVar(&o.samples, "n", 10000, "number of samples")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed (default: random, printed in the summary)")
	fs.StringVar(&o.shapesFile, "shapes", "", "YAML file with additional shapes")
	fs.BoolVar(&o.jsonOut, "json", false, "print the summary and convergence as JSON")
	fs.StringVar(&o.scatter, "scatter", "", "write the scatter chart PNG to this path")
	fs.StringVar(&o.convergence, "convergence", "", "write the convergence chart PNG to this path")
	fs.BoolVar(&o.quiet, "quiet", false, "disable the progress bar")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.seeded = true
		}
	})
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(o.logLevel, "text")

	cat, err := catalog.Load(o.shapesFile)
	if err != nil {
		return err
	}
	target, err := cat.Lookup(o.target)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, cat.Names())
	}

	opts := []estimator.Option{estimator.WithLogger(logger)}
	if o.seeded {
		opts = append(opts, estimator.WithSeed(o.seed))
	}

	var progress estimator.ProgressFunc
	var bar *pb.ProgressBar
	if !o.quiet && o.samples > 0 {
		bar = pb.New(o.samples).SetWriter(stderr).Start()
		progress = func(current, total int) {
			bar.SetCurrent(int64(current))
		}
	}

	res, err := estimator.New(opts...).Run(ctx, target, o.samples, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	sum := estimator.Summarize(res, target)

	if o.scatter != "" {
		if err := writeChart(o.scatter, func() ([]byte, error) { return render.Scatter(res, target) }); err != nil {
			return err
		}
	}
	if o.convergence != "" {
		if err := writeChart(o.convergence, func() ([]byte, error) { return render.Convergence(res, sum) }); err != nil {
			return err
		}
	}

	if o.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Seed        uint64               `json:"seed"`
			Summary     estimator.Summary    `json:"summary"`
			Convergence []estimator.Snapshot `json:"convergence"`
		}{res.Seed, sum, res.Convergence})
	}

	printSummary(stdout, res, sum)
	return nil
}

func writeChart(path string, draw func() ([]byte, error)) error {
	img, err := draw()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, res *estimator.RunResult, sum estimator.Summary) {
	fmt.Fprintf(w, "Monte Carlo %s estimation summary (N=%d, seed=%d)\n", sum.Target, sum.Samples, res.Seed)
	fmt.Fprintf(w, "Points inside        : %d\n", sum.Inside)
	fmt.Fprintf(w, "Points outside       : %d\n", sum.Outside)
	fmt.Fprintf(w, "Percent inside       : %.2f%%\n", sum.Ratio*100)
	fmt.Fprintf(w, "Estimate             : %.4f\n", sum.Estimate)
	if sum.Reference > 0 {
		fmt.Fprintf(w, "Reference            : %.4f\n", sum.Reference)
		fmt.Fprintf(w, "Absolute error       : %.4f\n", sum.AbsError)
		fmt.Fprintf(w, "Percent error        : %.2f%%\n", sum.PercentError)
	}
	fmt.Fprintf(w, "Initial error        : %.4f\n", sum.InitialError)
	fmt.Fprintf(w, "Error at %-7d     : %.4f\n", sum.MidSamples, sum.MidError)
	fmt.Fprintf(w, "Final error          : %.4f\n", sum.FinalError)
	fmt.Fprintf(w, "Error band           : ±%.4f\n", sum.Band)
}
