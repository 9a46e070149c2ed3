package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tangzhangming/dexopt/internal/config"
	"github.com/tangzhangming/dexopt/internal/logging"
	"github.com/tangzhangming/dexopt/internal/pass"
	"github.com/tangzhangming/dexopt/internal/program"
)

// options 命令行参数
type options struct {
	configPath  string
	outPath     string
	metricsPath string
	verify      bool
	minSdk      int
	arch        string
	verbose     bool
	input       string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("dexopt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Config file (default: search dexopt.toml upward from the input)")
	fs.StringVar(&o.outPath, "o", "", "Output program file (default: stdout)")
	fs.StringVar(&o.metricsPath, "metrics", "", "Write metrics in Prometheus text format")
	fs.BoolVar(&o.verify, "verify", false, "Check parameterless methods with the interpreter")
	fs.IntVar(&o.minSdk, "min-sdk", -1, "Override redex.min_sdk")
	fs.StringVar(&o.arch, "arch", "", "Override redex.arch")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: dexopt [options] <program.yaml>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one input file")
	}
	o.input = fs.Arg(0)
	return o, nil
}

// loadConfig 按 -config、向上查找、默认值的顺序解析配置，再应用命令行覆盖
func loadConfig(o *options) (*config.Config, string, error) {
	path := o.configPath
	if path == "" {
		path = config.FindConfigFile(o.input, config.ConfigFileName)
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, path, err
		}
	}

	if o.minSdk >= 0 {
		cfg.Redex.MinSdk = o.minSdk
	}
	if o.arch != "" {
		cfg.Redex.Arch = o.arch
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if cfgPath != "" {
		logger.Info("loaded config", zap.String("path", cfgPath))
	}

	prog, err := program.Load(o.input)
	if err != nil {
		return err
	}

	var verifier *pass.Verifier
	if o.verify {
		verifier = pass.NewVerifier()
		verifier.Record(prog)
		logger.Info("recorded baseline", zap.Int("methods", verifier.Recorded()))
	}

	pm := pass.CreateStandardPipeline(cfg, logger)
	if err := pm.Run(ctx, prog); err != nil {
		return err
	}

	if verifier != nil {
		if err := verifier.Check(prog); err != nil {
			return errors.Wrap(err, "verification failed")
		}
	}

	if o.outPath != "" {
		if err := prog.Save(o.outPath); err != nil {
			return err
		}
	} else {
		data, err := prog.Marshal()
		if err != nil {
			return err
		}
		if _, err := stdout.Write(data); err != nil {
			return err
		}
	}

	if o.metricsPath != "" {
		if err := pm.WriteMetrics(o.metricsPath); err != nil {
			return err
		}
	}

	printSummary(stderr, pm)
	return nil
}

func printSummary(w io.Writer, pm *pass.PassManager) {
	for _, p := range pm.Passes() {
		fmt.Fprintf(w, "=== %s ===\n", p.Name())
		metrics := pm.Metrics(p.Name())
		for _, name := range pm.MetricNames(p.Name()) {
			fmt.Fprintf(w, "  %-44s %d\n", name, metrics[name])
		}
	}
	fmt.Fprintf(w, "reserved method refs: %d\n", pm.ReservedMethodRefs())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}
