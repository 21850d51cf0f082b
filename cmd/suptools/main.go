package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ironsheep/suptools/internal/config"
	"github.com/ironsheep/suptools/internal/server"
	"k8s.io/klog/v2"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `suptools - image dataset preparation and training visualization

Usage: suptools [klog flags] <command> [options] [arguments]

Commands:
  serve      Run the MCP server over stdin/stdout (default)
  split      Split a dataset directory into train/valid sets, optionally copying them
  preview    Render one batch of a dataset as a PNG grid
  history    Plot training accuracy and loss from a JSON history
  version    Print version information
  help       Print this help message

Run "suptools <command> -h" for the options of a command.

Environment variables:
  IMAGE_SUPTOOLS_LOG_LEVEL=debug    Enable debug logging
`

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if os.Getenv("IMAGE_SUPTOOLS_LOG_LEVEL") == "debug" {
		_ = flag.Set("v", "2")
	}
	defer klog.Flush()

	args := flag.Args()
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = runServe(args)
	case "split":
		err = runSplit(args)
	case "preview":
		err = runPreview(args)
	case "history":
		err = runHistory(args)
	case "version":
		fmt.Printf("suptools %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		klog.Errorf("%s: %+v", command, err)
		klog.Flush()
		os.Exit(1)
	}
}

// loadConfig returns the configuration in path, or the defaults if path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	klog.V(1).Infof("Image suptools MCP server %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	server.ServerVersion = Version
	return server.NewWithConfig(cfg).Run()
}
