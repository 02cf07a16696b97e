package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/velorahq/crewchat/internal/config"
	"github.com/velorahq/crewchat/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "config file path (defaults to ~/.crewchat/config.toml)")
	flag.Parse()

	path := *configFlag
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(cfg),
	)

	app.Run()
}
