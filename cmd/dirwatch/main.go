// Command dirwatch runs the directory watcher from a YAML config, printing
// events as structured log lines. It is the reference embedding surface for
// the library.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/listenupapp/dirwatch"
	"github.com/listenupapp/dirwatch/internal/di"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "dirwatch",
		Short:         "Watch a directory tree and report file changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(runCmd(), onceCmd(), backendsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch until interrupted (SIGINT/SIGTERM)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			injector := di.NewContainer(configPath)

			log, err := di.Logger(injector)
			if err != nil {
				return err
			}
			w, err := di.Watcher(injector)
			if err != nil {
				return err
			}

			w.AddObserverFunc(func(ev dirwatch.Event) error {
				log.Info("file event", "type", ev.Type.String(), "path", ev.Path)
				return nil
			})

			if err := w.Start(); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			log.Info("shutting down")
			return w.Stop()
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single synchronous scan+dispatch cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			injector := di.NewContainer(configPath)

			log, err := di.Logger(injector)
			if err != nil {
				return err
			}
			w, err := di.Watcher(injector)
			if err != nil {
				return err
			}

			w.AddObserverFunc(func(ev dirwatch.Event) error {
				log.Info("file event", "type", ev.Type.String(), "path", ev.Path)
				return nil
			})

			n, err := w.RunOnce()
			if err != nil {
				return err
			}
			log.Info("scan complete", "events", n)
			return nil
		},
	}
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List scanner backends and their availability",
		Run: func(cmd *cobra.Command, _ []string) {
			for name, available := range dirwatch.Backends() {
				fmt.Printf("%-10s available=%v\n", name, available)
			}
		},
	}
}
