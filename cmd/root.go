// Package cmd implements the CLI commands using cobra.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firestige/taskctl/internal/chat"
	"github.com/firestige/taskctl/internal/control"
	"github.com/firestige/taskctl/internal/hostconfig"
	"github.com/firestige/taskctl/internal/log"
	"github.com/firestige/taskctl/internal/scheduler"
	"github.com/firestige/taskctl/internal/security"
	"github.com/firestige/taskctl/internal/shell"
	"github.com/firestige/taskctl/internal/task"
)

var (
	logConfigPath string
	configPath    string
	batchClass    string
	socketPath    string
)

// rootCmd is the host process itself (spec.md §4.8's C8): it loads
// config, assembles the execution core and whichever surfaces were
// requested, then blocks until shutdown.
var rootCmd = &cobra.Command{
	Use:     "taskctl [flags] [KEY=VALUE|FLAG ...]",
	Short:   "A declarative subprocess task orchestrator",
	Version: "0.1.0",
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(cmd, args)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&logConfigPath, "log-config", "l", "logging.conf", "log config file path")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "host config file path")
	rootCmd.Flags().StringVarP(&batchClass, "batch", "b", "TaskManager", "batch component to instantiate")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "taskctl.sock", "control socket path")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(validateCmd)
}

// parseRuntimeContext parses the trailing-positional context (spec.md
// §6 / §4.8): KEY=VALUE becomes a string entry, a bare token becomes a
// boolean-true flag. Grounded on original_source's batch.py
// _prepare_context.
func parseRuntimeContext(args []string) map[string]any {
	ctx := make(map[string]any, len(args))
	for _, a := range args {
		if i := strings.IndexByte(a, '='); i >= 0 {
			ctx[a[:i]] = a[i+1:]
			continue
		}
		ctx[a] = true
	}
	return ctx
}

func runHost(cmd *cobra.Command, args []string) error {
	logCfg, err := hostconfig.LoadLogConfig(logConfigPath)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	log.Init(logCfg)

	runtimeCtx := parseRuntimeContext(args)

	hostCfg, err := hostconfig.Load(configPath, batchClass, runtimeCtx)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	// -s/--socket is shared with the task/shutdown client subcommands,
	// where it defaults to the same "taskctl.sock". An explicit
	// --socket on the host invocation overrides the config file's
	// control_socket; otherwise the config file wins.
	controlSocket := hostCfg.ControlSocket
	if cmd.Flags().Changed("socket") {
		controlSocket = socketPath
	}

	shellEnabled := hostCfg.ShellEnabled || truthy(runtimeCtx["shell"])
	schedulerEnabled := hostCfg.SchedulerEnabled || truthy(runtimeCtx["scheduler"])
	telegramEnabled := hostCfg.Telegram.Started || truthy(runtimeCtx["telegram"])

	mgr := task.NewManager(hostCfg.Tasks)

	var sched *scheduler.Scheduler
	if schedulerEnabled {
		sched = scheduler.New(mgr)
		sched.Start(hostCfg.Tasks)
	}

	var chatDriver *chat.TelegramDriver
	if telegramEnabled {
		token, err := security.Decode(hostCfg.Telegram.Token)
		if err != nil {
			log.GetLogger().WithError(err).Error("startup: cannot decode telegram token, chat surface disabled")
		} else {
			chatDriver = chat.NewTelegramDriver(token, mgr, hostCfg.Telegram.Users)
			if err := chatDriver.Start(); err != nil {
				log.GetLogger().WithError(err).Error("startup: telegram surface failed to start")
				chatDriver = nil
			}
		}
	}

	// The control socket is always exposed so an external task/shutdown
	// CLI invocation can reach this process regardless of which other
	// surfaces are enabled.
	ctl := control.NewServer(controlSocket, mgr, func() { os.Exit(0) })
	if err := ctl.Start(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	shutdown := func() {
		if sched != nil {
			sched.Stop()
		}
		if chatDriver != nil {
			chatDriver.Stop()
		}
		ctl.Stop()
		mgr.StopAll()
	}

	if shellEnabled {
		sh := shell.New(os.Stdin, os.Stdout, mgr, hostCfg.Tasks, schedulerLifecycleOf(sched), chatLifecycleOf(chatDriver))
		sh.ShutdownFunc = shutdown
		sh.Run()
		return nil
	}

	waitForSignal()
	shutdown()
	return nil
}

func schedulerLifecycleOf(s *scheduler.Scheduler) shell.SchedulerLifecycle {
	if s == nil {
		return nil
	}
	return s
}

func chatLifecycleOf(d *chat.TelegramDriver) shell.ChatLifecycle {
	if d == nil {
		return nil
	}
	return d
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
