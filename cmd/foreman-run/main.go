// cmd/foreman-run/main.go
//
// Headless runner for a single process: resolves the process, drives it to
// completion with the console (or auto) gate, and prints where the run's
// result landed. Suited to CI smoke runs and scripting.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/host"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/processes"
	"github.com/xldeveloper/foreman/internal/task"
	"github.com/xldeveloper/foreman/plugins"
)

func main() {
	processID := flag.String("process", "", "process identifier to run (defaults to the configured default)")
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	inputsFile := flag.String("inputs", "", "path to a JSON file with process inputs")
	auto := flag.Bool("auto", false, "approve every breakpoint without asking")
	listOnly := flag.Bool("list", false, "list registered processes and exit")
	sets := keyValueFlag{}
	flag.Var(&sets, "set", "process input override (key=value, repeatable)")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitForemanDir(absoluteProject); err != nil {
		die("init .foreman: %v", err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}

	registry := process.NewRegistry()
	kinds := task.NewRegistry()
	processes.RegisterBuiltins(registry, kinds)
	defs, err := plugins.LoadProcessDir(cfg.ProcessesDir())
	if err != nil {
		die("load plugins: %v", err)
	}
	if err := plugins.RegisterAll(registry, defs); err != nil {
		die("register plugins: %v", err)
	}

	if *listOnly {
		for _, id := range registry.IDs() {
			fmt.Println(id)
		}
		return
	}

	id := strings.TrimSpace(*processID)
	if id == "" {
		id = cfg.DefaultProcess()
	}

	inputs, err := buildInputs(*inputsFile, sets)
	if err != nil {
		die("load inputs: %v", err)
	}

	opts := []host.Option{}
	if *auto || cfg.Project.Approvals.Auto {
		opts = append(opts, host.WithGate(process.AutoGate{}))
	}
	h := host.New(cfg, registry, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := h.Start(ctx, id, inputs)
	if err != nil {
		if outcome != nil {
			fmt.Fprintf(os.Stderr, "run directory: %s\n", outcome.Run.Dir())
		}
		die("run %s: %v", id, err)
	}

	fmt.Printf("run %s finished (success=%t)\n", outcome.Run.ID, outcome.Result.Success)
	if !outcome.Result.Success {
		fmt.Printf("failed at %s: %s\n", outcome.Result.Phase, outcome.Result.Error)
	}
	fmt.Printf("result: %s\n", outcome.Run.ResultPath())
	if !outcome.Result.Success {
		os.Exit(1)
	}
}

// buildInputs merges the inputs file with -set overrides. Override values are
// decoded as JSON when possible so numbers and booleans keep their types.
func buildInputs(path string, sets keyValueFlag) (process.Inputs, error) {
	inputs := process.Inputs{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	for key, raw := range sets {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		inputs[key] = value
	}
	return inputs, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[strings.TrimSpace(parts[0])] = parts[1]
	return nil
}
