package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/netriage/netriage/internal/ingest"
	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/internal/report"
	"github.com/netriage/netriage/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-render the dashboard whenever capture files change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWatch(optionalDir(args))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(dir string) {
	cfg := setup()
	if dir == "" {
		dir = cfg.CaptureDir
	}
	log := logging.L("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start watcher: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to watch %s: %v\n", dir, err)
		os.Exit(1)
	}

	ws := session.NewWorkspace()
	r := report.New()
	reload := func() {
		res, err := ingest.LoadDir(dir)
		if err != nil {
			log.Warn("reload failed", logging.KeyError, err)
			return
		}
		s := ws.Load(res.Processes, res.Connections)
		fmt.Printf("\n[%s] %s\n\n", time.Now().Format("15:04:05"), dir)
		if err := r.Dashboard(os.Stdout, s); err != nil {
			log.Warn("render failed", logging.KeyError, err)
		}
	}
	reload()

	// Bursts of file writes collapse into one reload per debounce window.
	debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("watching capture directory", "dir", dir, "debounce", debounce.String())
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("capture change", logging.KeyFile, filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", logging.KeyError, err)
		case <-timer.C:
			reload()
		case <-sigChan:
			fmt.Println("\nStopping watch")
			return
		}
	}
}
