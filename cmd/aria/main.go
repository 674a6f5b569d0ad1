package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexpernaoficial/Alex-Perna/internal/app"
	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/config"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/input"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file (default: ~/.ariarc or /etc/aria/config.yaml)")
	voice        = flag.String("voice", "", "Prebuilt voice: Kore, Puck, Charon, Fenrir, Aoede, Leda, Orus, Zephyr")
	liveModel    = flag.String("model", "", "Live model name")
	audioDevice  = flag.String("device", "", "Audio input device name or ID (use --list-devices to see available devices)")
	outputDevice = flag.String("output-device", "", "Audio output device name or ID")
	outputFormat = flag.String("format", "console", "Output format: console, json, text")
	outputFile   = flag.String("output", "", "Output file (default: stdout)")
	keepAlive    = flag.Bool("keep-alive", true, "Play a near-silent tone while connected so the output device stays awake")
	muteHotkey   = flag.String("hotkey", "", "Global mute hotkey, e.g. ctrl+shift+m (empty disables it)")
	metricsAddr  = flag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9090")
	listDevices  = flag.Bool("list-devices", false, "List all available audio devices")
	proactive    = flag.Bool("proactive", false, "Let Aria start a conversation after a long silence")
	connect      = flag.Bool("connect", true, "Connect the voice session at startup")
	verbose      = flag.Bool("v", false, "Verbose logging")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *verbose {
		logger.SetVerbose(true)
	}

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.LoadEnv()

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Aria v%s (commit: %s, branch: %s, built: %s)\n",
		Version, GitCommit, GitBranch, BuildTime)

	if err := selectDevices(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assistant := app.NewAssistant(app.AssistantConfig{
		Config:      cfg,
		AutoConnect: *connect,
	})
	if err := assistant.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", failure.Describe(err))
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the configuration file
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["voice"] {
		cfg.Gemini.Voice = *voice
	}
	if flagsSet["model"] {
		cfg.Gemini.LiveModel = *liveModel
	}
	if flagsSet["device"] {
		cfg.Audio.InputDevice = *audioDevice
	}
	if flagsSet["output-device"] {
		cfg.Audio.OutputDevice = *outputDevice
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["keep-alive"] {
		cfg.Audio.KeepAlive = *keepAlive
	}
	if flagsSet["hotkey"] {
		cfg.Hotkey.Mute = *muteHotkey
	} else if cfg.Hotkey.Mute == "" {
		cfg.Hotkey.Mute = input.DefaultMuteHotkey
	}
	if flagsSet["metrics"] {
		cfg.Metrics.Listen = *metricsAddr
	}
	if flagsSet["proactive"] {
		cfg.Assistant.Proactive = *proactive
	}
}

// selectDevices fails early on device names that do not exist
func selectDevices(cfg *config.Config) error {
	dm := app.NewDeviceManager()
	if cfg.Audio.InputDevice != "" {
		if _, err := dm.SelectDevice(audio.DeviceTypeCapture, cfg.Audio.InputDevice); err != nil {
			return err
		}
	}
	if cfg.Audio.OutputDevice != "" {
		if _, err := dm.SelectDevice(audio.DeviceTypePlayback, cfg.Audio.OutputDevice); err != nil {
			return err
		}
	}
	return nil
}
