package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexpernaoficial/Alex-Perna/internal/app"
	"github.com/alexpernaoficial/Alex-Perna/internal/config"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.ariarc or /etc/aria/config.yaml)")
	verbose     = flag.Bool("v", false, "Verbose logging (stderr)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *verbose {
		logger.SetVerbose(true)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.LoadEnv()

	handler := app.NewMCPHandler(cfg, Version, GitCommit)
	if err := handler.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
