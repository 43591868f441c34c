package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NodePath81/netgauge/internal/config"
	"github.com/NodePath81/netgauge/internal/discovery"
	"github.com/NodePath81/netgauge/internal/engine"
	"github.com/NodePath81/netgauge/internal/export"
	"github.com/NodePath81/netgauge/internal/history"
	"github.com/NodePath81/netgauge/internal/util"
)

func runTest(opts runOptions) {
	logger := util.NewLogger()
	if opts.quiet || opts.jsonOut {
		logger = util.NewQuietLogger()
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := pickServer(ctx, cfg, opts.serverID, logger)
	if err != nil {
		logger.Error("server selection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("selected server", "server", server.Label(), "host", server.Host)

	runner := engine.NewRunner(engineConfig(cfg), server, logger)
	res, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("test cancelled")
			os.Exit(130)
		}
		logger.Error("test failed", "error", err)
		os.Exit(1)
	}

	if opts.jsonOut {
		if err := export.WriteJSON(os.Stdout, res); err != nil {
			logger.Error("json output failed", "error", err)
			os.Exit(1)
		}
	} else {
		export.WriteSummary(os.Stdout, res)
	}

	if cfg.Export.JSONPath != "" {
		if err := export.SaveJSON(cfg.Export.JSONPath, res); err != nil {
			logger.Error("json export failed", "path", cfg.Export.JSONPath, "error", err)
		}
	}
	if cfg.Export.CSVPath != "" {
		if err := export.AppendCSV(cfg.Export.CSVPath, res); err != nil {
			logger.Error("csv export failed", "path", cfg.Export.CSVPath, "error", err)
		}
	}

	if cfg.History.Path != "" && util.BoolValue(cfg.History.Enabled, true) {
		recordHistory(cfg, res, opts.jsonOut, logger)
	}
}

// recordHistory saves the run and, when possible, prints how it compares
// to the previous stored one.
func recordHistory(cfg config.Config, res *engine.TestResult, jsonOut bool, logger util.Logger) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Error("history open failed", "path", cfg.History.Path, "error", err)
		return
	}
	defer store.Close()

	prev, prevErr := store.Latest()
	if err := store.Save(res); err != nil {
		logger.Error("history save failed", "error", err)
		return
	}
	if _, err := store.Prune(cfg.History.Keep); err != nil {
		logger.Error("history prune failed", "error", err)
	}

	if prevErr != nil || jsonOut {
		return
	}
	cur := history.Entry{
		DownloadBps: res.Download.BitsPerSecond,
		UploadBps:   res.Upload.BitsPerSecond,
		IdleMeanMs:  res.Idle.MeanMs,
	}
	cmp := history.Compare(cur, prev)
	fmt.Printf("vs %s: download %+.1f%%, upload %+.1f%%, idle latency %+.1f ms\n",
		prev.Timestamp.Local().Format(time.DateTime),
		cmp.DownloadPct, cmp.UploadPct, cmp.IdleMeanDeltaMs)
}

// pickServer resolves which server to test against: a pinned ID wins,
// otherwise the nearest candidates race in a latency shoot-out.
func pickServer(ctx context.Context, cfg config.Config, flagID int, logger util.Logger) (discovery.Server, error) {
	client := discovery.NewClient(cfg.Discovery.DirectoryURL, logger)
	servers, err := client.Servers(ctx)
	if err != nil {
		return discovery.Server{}, err
	}

	id := flagID
	if id == 0 {
		id = cfg.Discovery.ServerID
	}
	if id != 0 {
		s, ok := discovery.ByID(servers, id)
		if !ok {
			return discovery.Server{}, fmt.Errorf("server %d not in directory", id)
		}
		return s, nil
	}

	candidates := rankServers(ctx, cfg, client, servers, logger)
	return discovery.NewSelector(logger).Best(ctx, discovery.Nearest(candidates, cfg.Discovery.Candidates))
}

// rankServers orders the directory by distance when the client position
// can be resolved; otherwise directory order stands.
func rankServers(ctx context.Context, cfg config.Config, client *discovery.Client, servers []discovery.Server, logger util.Logger) []discovery.Server {
	if cfg.Discovery.GeoIPPath == "" {
		return servers
	}
	locator, err := discovery.OpenGeoLocator(cfg.Discovery.GeoIPPath)
	if err != nil {
		logger.Warn("geoip unavailable, skipping distance ranking", "error", err)
		return servers
	}
	defer locator.Close()

	ip, err := client.PublicIP(ctx)
	if err != nil {
		logger.Warn("public ip lookup failed, skipping distance ranking", "error", err)
		return servers
	}
	coords, err := locator.Locate(ip)
	if err != nil {
		logger.Warn("geoip lookup failed, skipping distance ranking", "ip", ip, "error", err)
		return servers
	}
	return discovery.AnnotateDistances(servers, coords)
}

func engineConfig(cfg config.Config) engine.TestConfig {
	tc := engine.TestConfig{
		Probe:            cfg.Latency.Probe,
		PingCount:        cfg.Latency.PingCount,
		PingTimeout:      cfg.Latency.PingTimeout.Duration(),
		Connections:      cfg.Transfer.Connections,
		DownloadDuration: cfg.Transfer.DownloadDuration.Duration(),
		UploadDuration:   cfg.Transfer.UploadDuration.Duration(),
		SampleInterval:   cfg.Transfer.SampleInterval.Duration(),
		Warmup:           cfg.Transfer.Warmup.Duration(),
		ConnectTimeout:   cfg.Transfer.ConnectTimeout.Duration(),
		MonitorInterval:  cfg.Latency.MonitorInterval.Duration(),
	}
	for _, t := range cfg.Grading.Thresholds {
		tc.GradeThresholds = append(tc.GradeThresholds, engine.GradeThreshold{
			MaxDeltaMs: t.MaxDeltaMs,
			Grade:      engine.Grade(t.Grade),
		})
	}
	return tc
}

func listServers(configPath string, count int) {
	logger := util.NewQuietLogger()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := discovery.NewClient(cfg.Discovery.DirectoryURL, logger)
	servers, err := client.Servers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server directory: %v\n", err)
		os.Exit(1)
	}
	servers = rankServers(ctx, cfg, client, servers, logger)

	for _, s := range discovery.Nearest(servers, count) {
		if s.DistanceKm > 0 {
			fmt.Printf("%6d  %-40s %-30s %7.1f km\n", s.ID, s.Label(), s.Host, s.DistanceKm)
		} else {
			fmt.Printf("%6d  %-40s %-30s\n", s.ID, s.Label(), s.Host)
		}
	}
}

func showHistory(configPath string, count int) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.History.Path == "" {
		fmt.Fprintln(os.Stderr, "history is not configured (set history.path)")
		os.Exit(1)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history open failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	entries, err := store.Recent(count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history read failed: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("no stored results")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-25s  down %-12s up %-12s idle %6.1f ms  %s/%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.ServerName,
			util.FormatBitsPerSecond(e.DownloadBps),
			util.FormatBitsPerSecond(e.UploadBps),
			e.IdleMeanMs,
			e.DownloadGrade, e.UploadGrade)
	}
	if len(entries) > 1 {
		fmt.Printf("download trend  %s\n",
			export.HistorySparkline(entries, func(e history.Entry) float64 { return e.DownloadBps }))
		fmt.Printf("upload trend    %s\n",
			export.HistorySparkline(entries, func(e history.Entry) float64 { return e.UploadBps }))
	}
}
