// Command scheduler hosts a goschedule Scheduler as a standalone process:
// point it at an INI config (spec.md §6 CLI surface) and optionally drop
// into an interactive console that accepts job-control commands on stdin
// until "exit".
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/netresearch/goschedule/config"
	"github.com/netresearch/goschedule/scheduler"
	"github.com/netresearch/goschedule/store"
)

type options struct {
	ConfigPath string `short:"c" long:"config" description:"path to the scheduler's INI config file" default:"scheduler.ini"`
	Verbose    bool   `short:"v" long:"verbose" description:"enable debug logging"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin *os.File, stdout *os.File) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] [console]"

	remaining, err := parser.ParseArgs(args)
	if err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(stdout, err)
		return 1
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}))

	file, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", "path", opts.ConfigPath, "error", err)
		return 1
	}

	st := store.NewRAMJobStore(logger)
	sched := scheduler.New(file.ToSchedulerConfig(), st, logger)

	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	wantsConsole := len(remaining) > 0 && remaining[0] == "console"
	if wantsConsole {
		runConsole(stdin, stdout, sched, logger)
	} else {
		<-make(chan struct{})
	}

	sched.Shutdown(true)
	return 0
}

// runConsole reads newline-delimited commands until "exit" or EOF.
// Recognized commands: "pause <group>", "resume <group>", "status".
func runConsole(stdin *os.File, stdout *os.File, sched *scheduler.Scheduler, logger *slog.Logger) {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "exit":
			return
		case "status":
			fmt.Fprintf(stdout, "jobs=%v triggers=%v\n", sched.GetJobGroupNames(), sched.GetTriggerGroupNames())
		case "pause":
			if len(fields) == 2 {
				sched.PauseJobs(fields[1])
			}
		case "resume":
			if len(fields) == 2 {
				sched.ResumeJobs(fields[1])
			}
		default:
			logger.Warn("unrecognized console command", "line", line)
		}
	}
}
