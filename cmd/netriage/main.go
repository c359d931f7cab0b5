package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/netriage/netriage/internal/capture"
	"github.com/netriage/netriage/internal/config"
	"github.com/netriage/netriage/internal/filter"
	"github.com/netriage/netriage/internal/ingest"
	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/nav"
	"github.com/netriage/netriage/internal/report"
	"github.com/netriage/netriage/internal/session"
)

var (
	version = "0.1.0"

	cfgFile    string
	dirFlag    string
	logLevel   string
	logFormat  string
	outputFlag string

	treeSearch    string
	timelineLimit int
	connSearch    string
	connProtocol  string
	connStatus    string
	connUser      string
	connLimit     int
	captureOut    string
)

var rootCmd = &cobra.Command{
	Use:   "netriage",
	Short: "Process and connection snapshot triage",
	Long: `Netriage - offline triage for process and connection captures.
Loads NDJSON snapshot pairs, correlates processes with their sockets,
and renders dashboards, trees, and security summaries.`,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Load a capture directory and print the dashboard and security summary",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInspect(optionalDir(args))
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "Print the correlated process tree",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTree(optionalDir(args))
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [dir]",
	Short: "Print processes newest first with their connection load",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTimeline(optionalDir(args))
	},
}

var processCmd = &cobra.Command{
	Use:   "process <pid> [dir]",
	Short: "Print the intel pane for one process",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		dir := ""
		if len(args) == 2 {
			dir = args[1]
		}
		runProcess(args[0], dir)
	},
}

var connectionsCmd = &cobra.Command{
	Use:   "connections [dir]",
	Short: "Print the filtered connection table",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runConnections(optionalDir(args))
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Snapshot local processes and connections into an NDJSON pair",
	Run: func(cmd *cobra.Command, args []string) {
		runCapture()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("netriage v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/netriage/netriage.yaml)")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "capture directory (overrides capture_dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	inspectCmd.Flags().StringVar(&outputFlag, "output", "text", "output format: text, json, or yaml")
	treeCmd.Flags().StringVar(&treeSearch, "search", "", "only show processes whose label matches")
	timelineCmd.Flags().IntVar(&timelineLimit, "limit", 0, "maximum rows (0 shows all)")
	connectionsCmd.Flags().StringVar(&connSearch, "search", "", "substring match over name, pid, and addresses")
	connectionsCmd.Flags().StringVar(&connProtocol, "protocol", "", "exact protocol match, e.g. TCP")
	connectionsCmd.Flags().StringVar(&connStatus, "status", "", "exact status match, e.g. LISTEN")
	connectionsCmd.Flags().StringVar(&connUser, "user", "", "exact owner username match")
	connectionsCmd.Flags().IntVar(&connLimit, "limit", -1, "maximum rows (default from grid_limit)")
	captureCmd.Flags().StringVar(&captureOut, "out", "", "output directory (default is capture_dir)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func optionalDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// setup loads config, applies flag overrides, and initializes logging.
// Every command calls it first.
func setup() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if dirFlag != "" {
		cfg.CaptureDir = dirFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	cfg.Validate()

	var logOut io.Writer
	if cfg.LogFile != "" {
		w, err := logging.NewRotatingWriter(cfg.LogFile, 0, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		logOut = w
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, logOut)
	return cfg
}

func mustLoad(dir string) *ingest.Result {
	res, err := ingest.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load captures: %v\n", err)
		os.Exit(1)
	}
	return res
}

func runInspect(dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	res := mustLoad(dir)
	s := session.Open(res.Processes, res.Connections)

	switch outputFlag {
	case "text":
		r := report.New()
		if err := report.Files(os.Stdout, res.Files); err != nil {
			fail(err)
		}
		fmt.Println()
		if err := r.Dashboard(os.Stdout, s); err != nil {
			fail(err)
		}
		fmt.Println()
		if err := r.Security(os.Stdout, s, nav.EmphasisNone); err != nil {
			fail(err)
		}
	case "json", "yaml":
		if err := report.Encode(os.Stdout, s.Report, outputFlag); err != nil {
			fail(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q (use text, json, or yaml)\n", outputFlag)
		os.Exit(1)
	}
}

func runTree(dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	res := mustLoad(dir)
	s := session.Open(res.Processes, res.Connections)
	if err := report.New().Tree(os.Stdout, s, treeSearch); err != nil {
		fail(err)
	}
}

func runTimeline(dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	res := mustLoad(dir)
	s := session.Open(res.Processes, res.Connections)
	if err := report.New().Timeline(os.Stdout, s, timelineLimit); err != nil {
		fail(err)
	}
}

func runProcess(pidArg, dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	pid, err := strconv.ParseInt(pidArg, 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pid %q\n", pidArg)
		os.Exit(1)
	}
	res := mustLoad(dir)
	s := session.Open(res.Processes, res.Connections)
	if err := report.New().ProcessDetail(os.Stdout, s, int32(pid)); err != nil {
		fail(err)
	}
}

func runConnections(dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	limit := connLimit
	if limit < 0 {
		limit = cfg.GridLimit
	}

	res := mustLoad(dir)
	ws := session.NewWorkspace()
	s := ws.Load(res.Processes, res.Connections)

	// The flags drive the table consumer's registered spec, the same
	// path the navigation events use.
	ws.Filters.Set(string(nav.ViewTable), filter.Spec{
		Search:   connSearch,
		Protocol: connProtocol,
		Status:   connStatus,
		Username: connUser,
	})
	spec := ws.Filters.Spec(string(nav.ViewTable))

	if err := report.New().Connections(os.Stdout, s, spec, limit); err != nil {
		fail(err)
	}
}

func runCapture() {
	cfg := setup()
	out := captureOut
	if out == "" {
		out = cfg.CaptureDir
	}

	ctx := logging.NewContext(context.Background(), logging.L("capture"))
	procPath, connPath, err := capture.New().WriteSnapshot(ctx, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", procPath)
	fmt.Printf("Wrote %s\n", connPath)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
