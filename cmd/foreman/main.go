// cmd/foreman/main.go
//
// Entry point for the interactive foreman TUI. Running `foreman` in a project
// initializes the .foreman directory, loads the built-in and declarative
// processes, and opens the process picker.

package main

import (
	"fmt"
	"os"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/processes"
	"github.com/xldeveloper/foreman/internal/task"
	"github.com/xldeveloper/foreman/internal/tui"
	"github.com/xldeveloper/foreman/plugins"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitForemanDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .foreman directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	registry := process.NewRegistry()
	kinds := task.NewRegistry()
	processes.RegisterBuiltins(registry, kinds)

	defs, err := plugins.LoadProcessDir(cfg.ProcessesDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading process plugins: %v\n", err)
		os.Exit(1)
	}
	if err := plugins.RegisterAll(registry, defs); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering process plugins: %v\n", err)
		os.Exit(1)
	}

	app := tui.NewApp(cfg, registry, nil)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
