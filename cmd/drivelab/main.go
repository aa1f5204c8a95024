package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/drivelab/internal/config"
	"github.com/san-kum/drivelab/internal/drive"
	"github.com/san-kum/drivelab/internal/metrics"
	"github.com/san-kum/drivelab/internal/sim"
	"github.com/san-kum/drivelab/internal/storage"
	"github.com/san-kum/drivelab/internal/telemetry"
	"github.com/san-kum/drivelab/internal/tui"
	"github.com/san-kum/drivelab/internal/track"
	"github.com/san-kum/drivelab/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	seed       int64
	traceSlip  bool
	channels   string
	decodeDt   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "drivelab",
		Short: "closed-loop drive controller lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".drivelab", "data directory")

	driveCmd := &cobra.Command{
		Use:   "drive [track]",
		Short: "run the controller closed-loop on a track",
		Args:  cobra.ExactArgs(1),
		RunE:  runDrive,
	}
	driveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "cycle period")
	driveCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	driveCmd.Flags().StringVar(&integrator, "integrator", "rk4", "plant integrator")
	driveCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	driveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	driveCmd.Flags().StringVar(&preset, "preset", "", "driver gain preset")
	driveCmd.Flags().BoolVar(&traceSlip, "trace", false, "trace slip target substitutions")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot telemetry channels from a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&channels, "channels", "vr,target_v,ye,psie", "comma-separated channel names")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run telemetry to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and telemetry to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	decodeCmd := &cobra.Command{
		Use:   "decode [telemetry.bin]",
		Short: "decode a raw telemetry log to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  decodeLog,
	}
	decodeCmd.Flags().Float64Var(&decodeDt, "dt", config.DefaultDt, "cycle period of the log")

	liveCmd := &cobra.Command{
		Use:   "live [track]",
		Short: "run the simulation with a live view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "cycle period")
	liveCmd.Flags().StringVar(&integrator, "integrator", "rk4", "plant integrator")
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "driver gain preset")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list driver gain presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				p := config.Presets[name]
				fmt.Printf("%-10s kpy=%d kvy=%d yaw_bw=%d motor_bw=%d speed=%d traction=%d\n",
					name, p.SteeringKpy, p.SteeringKvy, p.YawBW, p.MotorBW, p.SpeedLimit, p.TractionLimit)
			}
			return nil
		},
	}

	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "list builtin tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range track.BuiltinNames() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(driveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd,
		exportJSONCmd, decodeCmd, liveCmd, presetsCmd, tracksCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: defaults, then preset,
// then config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			names := config.ListPresets()
			sort.Strings(names)
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, names)
		}
		cfg.Driver = *p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Driver = loaded.Driver
		cfg.Calibration = loaded.Calibration
		cfg.Sim = loaded.Sim
	}

	if cmd.Flags().Lookup("dt") != nil && !cmd.Flags().Changed("dt") && cfg.Sim.Dt > 0 {
		dt = cfg.Sim.Dt
	}
	if cmd.Flags().Lookup("integrator") != nil && !cmd.Flags().Changed("integrator") && cfg.Sim.Integrator != "" {
		integrator = cfg.Sim.Integrator
	}

	return cfg, nil
}

// resolveTrack loads a track file if the argument names one, otherwise
// falls back to the builtin tracks.
func resolveTrack(name string) (*track.Track, error) {
	if _, err := os.Stat(name); err == nil {
		return track.Load(name)
	}
	if trk, ok := track.Builtin(name); ok {
		return trk, nil
	}
	return nil, fmt.Errorf("no track file or builtin named %q (builtins: %v)", name, track.BuiltinNames())
}

// startPose places the car on the first waypoint, tangent heading.
func startPose(trk *track.Track) (x, y, theta float64) {
	if trk == nil || trk.Len() < 2 {
		return 0, 0, 0
	}
	x0, y0 := trk.Waypoint(0)
	x1, y1 := trk.Waypoint(1)
	return x0, y0, math.Atan2(y1-y0, x1-x0)
}

func buildSimulator(cfg *config.Config, trk *track.Track) (*sim.Simulator, sim.State, error) {
	integ, err := sim.GetIntegrator(integrator)
	if err != nil {
		return nil, nil, err
	}

	var path drive.Path
	if trk != nil {
		path = trk
	}
	ctrl := drive.New(cfg.Calibration, path)
	if traceSlip {
		ctrl.Trace = os.Stderr
	}

	vehicle := sim.NewVehicle(cfg.Calibration)
	x, y, theta := startPose(trk)
	x0 := vehicle.InitialState(x, y, theta)

	return sim.New(vehicle, integ, ctrl, &cfg.Driver), x0, nil
}

func runDrive(cmd *cobra.Command, args []string) error {
	trackName := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	trk, err := resolveTrack(trackName)
	if err != nil {
		// drive on: the controller falls back to its lost-line law
		fmt.Fprintf(os.Stderr, "warning: no track loaded: %v\n", err)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, x0, err := buildSimulator(cfg, trk)
	if err != nil {
		return err
	}
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	fmt.Printf("driving %s...\n", trackName)
	start := time.Now()

	result, err := s.Run(context.Background(), x0, sim.Config{Dt: dt, Duration: duration, Seed: seed})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, stepErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", stepErr)
	}

	runID, err := st.Save(trackName, integrator, preset, dt, duration, seed, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("cycles: %d\n", len(result.Records))
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRACK\tTIME\tDURATION\tDT\tINTEG\tPRESET")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Track,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Preset,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("track: %s\n", meta.Track)
	fmt.Printf("cycles: %d\n\n", len(records))

	names := strings.Split(channels, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return viz.PlotChannels(os.Stdout, records, names)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, nil)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, records, meta.Dt)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, records)
}

func decodeLog(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := telemetry.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	return storage.ExportCSV(os.Stdout, records, decodeDt)
}

func runLive(cmd *cobra.Command, args []string) error {
	trackName := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	trk, err := resolveTrack(trackName)
	if err != nil {
		return err
	}

	s, x0, err := buildSimulator(cfg, trk)
	if err != nil {
		return err
	}

	m := tui.NewModel(s, trk, trackName, x0, dt)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
