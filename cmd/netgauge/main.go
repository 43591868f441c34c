package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/NodePath81/netgauge/internal/config"
	"github.com/NodePath81/netgauge/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runCmd := flag.NewFlagSet("run", flag.ExitOnError)
			opts := bindRunFlags(runCmd)
			_ = runCmd.Parse(os.Args[2:])
			runTest(*opts)
			return
		case "servers":
			serversCmd := flag.NewFlagSet("servers", flag.ExitOnError)
			configPath := serversCmd.String("config", "", "Path to config file")
			count := serversCmd.Int("n", 10, "Number of servers to list")
			_ = serversCmd.Parse(os.Args[2:])
			listServers(*configPath, *count)
			return
		case "history":
			historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
			configPath := historyCmd.String("config", "", "Path to config file")
			count := historyCmd.Int("n", 10, "Number of runs to show")
			_ = historyCmd.Parse(os.Args[2:])
			showHistory(*configPath, *count)
			return
		case "check":
			checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
			configPath := checkCmd.String("config", "netgauge.yaml", "Path to config file")
			_ = checkCmd.Parse(os.Args[2:])
			checkConfig(*configPath)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		case "version", "-v", "--version":
			fmt.Println(version.Version)
			return
		}
	}

	// Bare invocation runs a test with defaults.
	opts := bindRunFlags(flag.CommandLine)
	flag.Parse()
	runTest(*opts)
}

type runOptions struct {
	configPath string
	serverID   int
	jsonOut    bool
	quiet      bool
}

func bindRunFlags(fs *flag.FlagSet) *runOptions {
	opts := &runOptions{}
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.IntVar(&opts.serverID, "server", 0, "Test against a specific server ID")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print machine-readable JSON instead of a summary")
	fs.BoolVar(&opts.quiet, "quiet", false, "Log errors only")
	return opts
}

func checkConfig(path string) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config valid: directory %s, %d connections\n",
		cfg.Discovery.DirectoryURL, cfg.Transfer.Connections)
}

func printHelp() {
	fmt.Print(`netgauge - network speed and bufferbloat measurement

Usage:
  netgauge run [flags]       Run a full measurement
  netgauge servers [flags]   List nearby servers
  netgauge history [flags]   Show stored results
  netgauge check --config <path>  Validate config file
  netgauge help              Show this help
  netgauge version           Print version

Run flags:
  --config <path>   Config file (optional; defaults apply)
  --server <id>     Pin a specific server ID
  --json            Print JSON to stdout
  --quiet           Log errors only
`)
}
