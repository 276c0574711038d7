package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sorsim/sorsim/sim/viz"
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize <logPath> [intervalMs]",
	Short: "Live-render a simulation log file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		interval := 200 * time.Millisecond
		if len(args) > 1 {
			ms, err := atoiArg("intervalMs", args[1])
			if err != nil {
				fail(err)
			}
			interval = time.Duration(ms) * time.Millisecond
		}

		stop := make(chan struct{})
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			close(stop)
		}()

		if err := viz.NewRenderer(args[0], interval).Run(stop); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(visualizeCmd)
}
