// Command missile-sim runs interceptor engagements from the command line.
//
//	missile-sim run --m-vx 300 --m-a-max 300 --m-v-closing-max 1000 --t-x 5000 ...
//	missile-sim presets [--run] [--laws ppn,tpn]
//	missile-sim batch [--random 500 | --presets | --scenarios file.json] --out summary.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/batch"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/scenarios"
	"github.com/signalsfoundry/intercept-simulator/sim"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

const usage = `usage: missile-sim <command> [flags]

commands:
  run       run one engagement built from flags under PPN, TPN and APN
  presets   list the preset engagements, or run them with --run
  batch     run scenarios x laws in parallel and write a CSV summary
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := realMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func realMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	log := logging.NewFromEnv(stderr)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: "missile-sim"}); err != nil {
			log.Warn(ctx, "sentry init failed", logging.Err(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Err(err))
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	var cmdErr error
	switch args[0] {
	case "run":
		cmdErr = runCmd(ctx, args[1:], stdout, log)
	case "presets":
		cmdErr = presetsCmd(ctx, args[1:], stdout, log)
	case "batch":
		cmdErr = batchCmd(ctx, args[1:], stdout, log)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	switch {
	case cmdErr == nil:
		return 0
	case errors.Is(cmdErr, flag.ErrHelp):
		return 0
	case errors.Is(cmdErr, errUsage):
		fmt.Fprintln(stderr, cmdErr)
		return 2
	default:
		log.Error(ctx, "command failed", logging.String("command", args[0]), logging.Err(cmdErr))
		return 1
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses args, turning flag errors into usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected arguments %v", errUsage, fs.Name(), fs.Args())
	}
	return nil
}

type runFlags struct {
	missile   model.MissileConfig
	target    model.TargetConfig
	dt        float64
	totalTime float64
	threshold float64
	laws      string
	speed     float64
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&f.missile.Position[0], "m-x", 0, "missile initial position x (m)")
	fs.Float64Var(&f.missile.Position[1], "m-y", 0, "missile initial position y (m)")
	fs.Float64Var(&f.missile.Position[2], "m-z", 0, "missile initial position z (m)")
	fs.Float64Var(&f.missile.Velocity[0], "m-vx", 0, "missile initial velocity x (m/s)")
	fs.Float64Var(&f.missile.Velocity[1], "m-vy", 0, "missile initial velocity y (m/s)")
	fs.Float64Var(&f.missile.Velocity[2], "m-vz", 0, "missile initial velocity z (m/s)")
	fs.Float64Var(&f.missile.MaxAcceleration, "m-a-max", 0, "missile maximum acceleration (m/s²)")
	fs.Float64Var(&f.missile.NavigationConstant, "m-n", 5, "missile navigation constant")
	fs.Float64Var(&f.missile.MaxClosingSpeed, "m-v-closing-max", 0, "missile maximum closing speed (m/s)")
	fs.Float64Var(&f.target.Position[0], "t-x", 0, "target initial position x (m)")
	fs.Float64Var(&f.target.Position[1], "t-y", 0, "target initial position y (m)")
	fs.Float64Var(&f.target.Position[2], "t-z", 0, "target initial position z (m)")
	fs.Float64Var(&f.target.Velocity[0], "t-vx", 0, "target initial velocity x (m/s)")
	fs.Float64Var(&f.target.Velocity[1], "t-vy", 0, "target initial velocity y (m/s)")
	fs.Float64Var(&f.target.Velocity[2], "t-vz", 0, "target initial velocity z (m/s)")
	fs.Float64Var(&f.dt, "dt", 1e-6, "integration timestep (s)")
	fs.Float64Var(&f.totalTime, "total-time", 60, "maximum simulated time (s)")
	fs.Float64Var(&f.threshold, "hit-threshold", 10, "hit threshold (m)")
	fs.StringVar(&f.laws, "laws", "ppn,tpn,apn:1.25", "comma-separated guidance laws")
	fs.Float64Var(&f.speed, "realtime", 0, "pace runs against the wall clock at this speed-up (0 runs as fast as possible)")
}

func runCmd(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	var f runFlags
	fs := newFlagSet("run")
	f.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	for _, required := range []string{"m-a-max", "m-v-closing-max"} {
		if !set[required] {
			return fmt.Errorf("%w: run: --%s is required", errUsage, required)
		}
	}

	laws, err := parseLaws(f.laws)
	if err != nil {
		return err
	}
	scenario, err := sim.NewScenario(
		sim.WithName("Scenario"),
		sim.WithMissile(f.missile),
		sim.WithTarget(f.target),
		sim.WithTimestep(f.dt),
		sim.WithDuration(f.totalTime),
		sim.WithHitThreshold(f.threshold),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "missile: pos %v vel %v\n", vecString(f.missile.Position), vecString(f.missile.Velocity))
	fmt.Fprintf(stdout, "target:  pos %v vel %v\n", vecString(f.target.Position), vecString(f.target.Velocity))
	fmt.Fprintf(stdout, "dt: %g, total_time: %g\n", f.dt, f.totalTime)
	opts := []sim.EngineOption{sim.WithLogger(log)}
	if f.speed > 0 {
		opts = append(opts, sim.WithPacer(timectrl.NewPacer(timectrl.RealTime, f.speed)))
	}
	return runScenarios(ctx, stdout, []*sim.Scenario{scenario}, laws, opts...)
}

func presetsCmd(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	fs := newFlagSet("presets")
	run := fs.Bool("run", false, "run every preset instead of listing them")
	orbital := fs.Bool("orbital", false, "include the orbital preset")
	lawsFlag := fs.String("laws", "ppn,tpn,apn:1.25", "comma-separated guidance laws")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	list := scenarios.Presets()
	if *orbital {
		list = scenarios.All()
	}
	if !*run {
		for _, s := range list {
			fmt.Fprintf(stdout, "%-28s dt=%g total=%gs threshold=%gm fingerprint=%016x\n",
				s.Name(), s.Timestep(), s.Duration(), s.HitThreshold(), s.Fingerprint())
		}
		return nil
	}

	laws, err := parseLaws(*lawsFlag)
	if err != nil {
		return err
	}
	return runScenarios(ctx, stdout, list, laws, sim.WithLogger(log))
}

// runScenarios runs each scenario under each law sequentially, printing
// one summary line per run.
func runScenarios(ctx context.Context, stdout io.Writer, list []*sim.Scenario, laws []guidance.Law, opts ...sim.EngineOption) error {
	for _, s := range list {
		fmt.Fprintf(stdout, "\n%s\n", s.Name())
		for _, law := range laws {
			e, err := s.NewEngine(opts...)
			if err != nil {
				return err
			}
			m, err := e.RunContext(ctx, law)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "  %-4s %s\n", law.Name(), m.Summary())
		}
	}
	return nil
}

func batchCmd(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	fs := newFlagSet("batch")
	random := fs.Int("random", 0, "number of seeded random scenarios")
	presets := fs.Bool("presets", false, "include the preset engagements")
	scenarioFile := fs.String("scenarios", "", "JSON scenario file to include")
	lawsFlag := fs.String("laws", "ppn,tpn,apn:2.75", "comma-separated guidance laws")
	workers := fs.Int("workers", 0, "parallel workers (0 = GOMAXPROCS)")
	out := fs.String("out", "summary.csv", "summary CSV path, - for stdout")
	progress := fs.Int("progress-every", 100, "log progress every n jobs (0 disables)")
	statsAddr := fs.String("statsview", "", "serve live runtime charts on this address, e.g. localhost:18066")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var list []*sim.Scenario
	if *presets {
		list = append(list, scenarios.Presets()...)
	}
	if *scenarioFile != "" {
		loaded, err := sim.LoadScenariosFile(*scenarioFile)
		if err != nil {
			return err
		}
		list = append(list, loaded...)
	}
	n := *random
	if n == 0 && len(list) == 0 {
		n = 500
	}
	list = append(list, scenarios.RandomSet(n)...)

	laws, err := parseLaws(*lawsFlag)
	if err != nil {
		return err
	}

	if *statsAddr != "" {
		viewer.SetConfiguration(viewer.WithAddr(*statsAddr))
		mgr := statsview.New()
		go func() { _ = mgr.Start() }()
		defer mgr.Stop()
		log.Info(ctx, "serving runtime charts", logging.String("addr", *statsAddr))
	}

	w := stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create summary: %w", err)
		}
		defer f.Close()
		w = f
	}
	sink, err := batch.NewCSVSink(w)
	if err != nil {
		return err
	}

	collector, err := observability.NewRunCollector(nil)
	if err != nil {
		return err
	}
	runner := &batch.Runner{
		Workers:       *workers,
		Sink:          sink,
		Log:           log,
		Collector:     collector,
		ProgressEvery: *progress,
	}
	stats, err := runner.Run(ctx, batch.Jobs(list, laws))
	log.Info(ctx, "batch summary",
		logging.Int("jobs", stats.Total),
		logging.Int("rows", sink.Rows()),
		logging.Int("hits", stats.Hits),
		logging.Int("failed", stats.Failed),
		logging.Duration("wall", stats.Wall),
		logging.String("out", *out),
	)
	return err
}

func parseLaws(s string) ([]guidance.Law, error) {
	laws, err := guidance.ParseList(s)
	if err != nil {
		return nil, fmt.Errorf("%w: --laws: %v", errUsage, err)
	}
	if len(laws) == 0 {
		return nil, fmt.Errorf("%w: --laws is empty", errUsage)
	}
	return laws, nil
}

func vecString(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v[0], v[1], v[2])
}
