package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/logging"
	"github.com/san-kum/stacksim/internal/render"
	"github.com/san-kum/stacksim/internal/runner"
	"github.com/san-kum/stacksim/internal/snapshot"
	"github.com/san-kum/stacksim/internal/storage"
	"github.com/san-kum/stacksim/internal/telemetry"
	"github.com/san-kum/stacksim/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	logFormat   string
	configFile  string
	duration    float64
	seed        int64
	ensemble    int
	recordEvery int
	snapshotOut string
	noSave      bool
	metricsAddr string
	frameRate   int
	logFile     string
	theme       string
	svgDir      string
	asTOML      bool
	outFile     string
)

// main registers the commands and exits with status 1 if the selected
// command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:   "stacksim",
		Short: "bounded coin stacking simulation",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".stacksim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run the simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml or toml)")
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /stats on this address")
	liveCmd.Flags().IntVar(&frameRate, "fps", 60, "frame rate")
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	liveCmd.Flags().StringVar(&svgDir, "svg-dir", ".", "directory for SVG captures")
	liveCmd.Flags().StringVar(&theme, "theme", "gold", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a headless recording",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml or toml)")
	runCmd.Flags().Float64Var(&duration, "time", 0, "simulated seconds (default from config)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default from config)")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 1, "number of seeds to run in parallel")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep one trace row every n frames")
	runCmd.Flags().StringVar(&snapshotOut, "snapshot", "", "write the final frame to this PNG")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run trace",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [preset]",
		Short: "print the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printConfig,
	}
	configCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml or toml)")
	configCmd.Flags().BoolVar(&asTOML, "toml", false, "print as TOML")

	rootCmd.AddCommand(liveCmd, runCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig picks the config file if given, else the named preset,
// else the defaults. Logging flags override the file.
func resolveConfig(args []string) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		name = "default"
	)
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	case len(args) > 0:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		name = args[0]
	default:
		cfg = config.DefaultConfig()
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, name, cfg.Validate()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(args)
	if err != nil {
		return err
	}

	// stdout belongs to the canvas
	log := zap.NewNop()
	if logFile != "" {
		if log, err = logging.New(cfg.Logging, logFile); err != nil {
			return err
		}
		defer log.Sync()
	}

	board := telemetry.NewBoard()
	m, err := viz.NewModel(cfg, viz.Options{
		FPS:     frameRate,
		Theme:   theme,
		SVGDir:  svgDir,
		OnFrame: board.Publish,
	}, lifecycle.WithLogger(log))
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := telemetry.NewServer(metricsAddr, telemetry.RouterConfig{
			Gatherer:          m.Scheduler().Collector().Registry(),
			Board:             board,
			Logger:            log,
			RequestsPerSecond: 50,
		})
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	return viz.Run(m)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if snapshotOut != "" && ensemble > 1 {
		return errors.New("--snapshot needs a single run")
	}

	log, err := logging.New(cfg.Logging, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []runner.Option{runner.WithLogger(log), runner.WithRecordEvery(recordEvery)}
	if snapshotOut != "" {
		host, err := snapshot.NewHost(int(cfg.Width), int(cfg.Height))
		if err != nil {
			return err
		}
		opts = append(opts,
			runner.WithHost(func() render.Host { return host }),
			runner.WithFinish(func(int64, *lifecycle.Scheduler) {
				if err := host.SavePNG(snapshotOut); err != nil {
					log.Error("snapshot failed", zap.String("path", snapshotOut), zap.Error(err))
				}
			}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(cfg, opts...)
	fmt.Printf("running %s for %.1fs simulated...\n", name, cfg.Duration)
	start := time.Now()

	var results []*runner.Result
	if ensemble > 1 {
		results, err = runner.NewEnsemble(r, ensemble, cfg.Seed).Run(ctx)
	} else {
		var res *runner.Result
		res, err = r.Run(ctx, cfg.Seed)
		results = []*runner.Result{res}
	}
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, res := range results {
			runID, err := st.Save(name, cfg, res)
			if err != nil {
				return err
			}
			fmt.Printf("run id: %s (seed %d)\n", runID, res.Seed)
		}
	}
	if snapshotOut != "" {
		fmt.Printf("snapshot: %s\n", snapshotOut)
	}

	if len(results) == 1 {
		printResult(results[0])
		return nil
	}

	fmt.Printf("\nensemble of %d runs:\n", len(results))
	spread := runner.Summarize(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
	for _, name := range sortedKeys(spread) {
		s := spread[name]
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n", name, s.Mean, s.Std, s.Min, s.Max)
	}
	return w.Flush()
}

func printResult(res *runner.Result) {
	f := res.Final
	fmt.Printf("frames: %s\n", humanize.Comma(int64(len(res.Frames))))
	fmt.Printf("live: %d / %d, spawned: %s, culled: %s, spawner: %s\n",
		f.Live, f.HardLimit, humanize.Comma(int64(f.Total)), humanize.Comma(int64(f.Culled)), f.SpawnState)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tSEED\tDURATION\tLIVE\tSPAWNED\tSPAWNER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1fs\t%d\t%d\t%s\n",
			run.ID,
			run.Preset,
			humanize.Time(run.Timestamp),
			run.Seed,
			run.Duration,
			run.Final.Live,
			run.Final.Total,
			run.Final.SpawnState,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", meta.ID)
	fmt.Fprintf(w, "preset\t%s\n", meta.Preset)
	fmt.Fprintf(w, "recorded\t%s (%s)\n", meta.Timestamp.Format("2006-01-02 15:04:05"), humanize.Time(meta.Timestamp))
	fmt.Fprintf(w, "seed\t%d\n", meta.Seed)
	fmt.Fprintf(w, "container\t%gx%g\n", meta.Width, meta.Height)
	fmt.Fprintf(w, "duration\t%.1fs (dt %.4fs, %s)\n", meta.Duration, meta.Dt, meta.Integrator)
	fmt.Fprintf(w, "limits\tsoft %d, hard %d\n", meta.MaxObjects, meta.HardLimit)
	fmt.Fprintf(w, "final\t%d live, %d spawned, %d culled, spawner %s\n",
		meta.Final.Live, meta.Final.Total, meta.Final.Culled, meta.Final.SpawnState)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(meta.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, meta.Metrics[name])
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(frames))

	series := []struct {
		caption string
		value   func(runner.Frame) float64
	}{
		{"live entities", func(f runner.Frame) float64 { return float64(f.Live) }},
		{"kinetic energy", func(f runner.Frame) float64 { return f.KineticEnergy }},
		{"spawn interval (ms)", func(f runner.Frame) float64 { return f.IntervalMs }},
	}
	for _, s := range series {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = s.value(f)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// output returns stdout or the --out file. The caller closes it.
func output() (*os.File, error) {
	if outFile == "" {
		return os.Stdout, nil
	}
	return os.Create(outFile)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	out, err := output()
	if err != nil {
		return err
	}
	if out != os.Stdout {
		defer out.Close()
	}
	return storage.New(dataDir).ExportCSV(args[0], out)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	out, err := output()
	if err != nil {
		return err
	}
	if out != os.Stdout {
		defer out.Close()
	}
	return storage.New(dataDir).ExportJSON(args[0], out)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTERVAL\tSOFT\tHARD\tRADIUS\tCONTAINER")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%dms\t%d\t%d\t%g-%g\t%gx%g\n",
			name, p.SpawnIntervalMs, p.MaxObjects, p.HardLimit, p.RadiusMin, p.RadiusMax, p.Width, p.Height)
	}
	return w.Flush()
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(args)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg, asTOML)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
