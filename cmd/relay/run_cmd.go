package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/voltlab/relay/sim"
	"github.com/voltlab/relay/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo oscillator circuit",
	Long: `Run steps a demo circuit until the configured number of steps has
passed. A square-wave driver flips every wire's pull each drive period, and a
comparator element drives an enable pin from the first wire's level.`,
	RunE: runDemo,
}

func init() {
	runCmd.Flags().Uint64("interval", 10, "ticks the simulation advances per step")
	runCmd.Flags().Duration("phase-timeout", 0, "how long a phase waits for each wire result (0 = default)")
	runCmd.Flags().Int("pool-size", 0, "workers stepping wires (0 = one per CPU)")
	runCmd.Flags().Uint64("steps", 64, "steps to run before finishing")
	runCmd.Flags().Int("wires", 8, "wires in the demo circuit")
	runCmd.Flags().Uint64("drive-period", 8, "steps between pull flips of the demo driver")
	runCmd.Flags().Bool("monitor", false, "start the monitoring server")
	runCmd.Flags().Int("monitor-port", 0, "monitoring server port (0 = random)")
	runCmd.Flags().Bool("open", false, "open the monitoring page in a browser")
	runCmd.Flags().Bool("metrics", false, "collect Prometheus metrics, served at /metrics")
	runCmd.Flags().Bool("trace", false, "record wire levels into the recording database")
	runCmd.Flags().String("output", "", "recording database path, without extension")
	runCmd.Flags().Bool("verbose", false, "log steps and phases to stderr")

	rootCmd.AddCommand(runCmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	interval, _ := cmd.Flags().GetUint64("interval")
	phaseTimeout, _ := cmd.Flags().GetDuration("phase-timeout")
	poolSize, _ := cmd.Flags().GetInt("pool-size")
	steps, _ := cmd.Flags().GetUint64("steps")
	wireCount, _ := cmd.Flags().GetInt("wires")
	drivePeriod, _ := cmd.Flags().GetUint64("drive-period")
	monitorOn, _ := cmd.Flags().GetBool("monitor")
	monitorPort, _ := cmd.Flags().GetInt("monitor-port")
	openBrowser, _ := cmd.Flags().GetBool("open")
	metricsOn, _ := cmd.Flags().GetBool("metrics")
	traceOn, _ := cmd.Flags().GetBool("trace")
	output, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if monitorPort == 0 {
		monitorPort = envInt("RELAY_MONITOR_PORT")
	}
	if output == "" {
		output = os.Getenv("RELAY_OUTPUT")
	}

	session := makeSession(sessionParams{
		interval:     sim.VTimeInTick(interval),
		phaseTimeout: phaseTimeout,
		poolSize:     poolSize,
		monitorOn:    monitorOn,
		monitorPort:  monitorPort,
		metricsOn:    metricsOn,
		traceOn:      traceOn,
		output:       output,
	})
	defer session.Terminate()

	core := session.GetSimulation()

	wires := buildDemoCircuit(session, wireCount, sim.VTimeInTick(interval))
	core.RegisterInputPhase(newSquareWaveDriver(wires, drivePeriod))

	element := newDemoElement(wires[0], steps, sim.VTimeInTick(2*interval))
	core.RegisterElementPhase(element)

	if verbose {
		core.AcceptHook(sim.NewStepLogger(log.New(os.Stderr, "", 0)))
	}

	if monitorOn {
		session.GetMonitor().TrackSteps(core, "demo run", steps)
		if openBrowser {
			if err := browser.OpenURL(session.GetMonitor().Addr()); err != nil {
				fmt.Fprintf(os.Stderr, "cannot open browser: %s\n", err)
			}
		}
	}

	result, err := session.Run()
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Printf("Simulation %s at t=%d, enable pin %s\n",
		result, core.CurrentTime(), element.Pin().State())
	printLevels(core)

	return nil
}

type sessionParams struct {
	interval     sim.VTimeInTick
	phaseTimeout time.Duration
	poolSize     int
	monitorOn    bool
	monitorPort  int
	metricsOn    bool
	traceOn      bool
	output       string
}

func makeSession(p sessionParams) *simulation.Simulation {
	builder := simulation.MakeBuilder().WithInterval(p.interval)

	if !p.monitorOn {
		builder = builder.WithoutMonitoring()
	} else if p.monitorPort > 0 {
		builder = builder.WithMonitorPort(p.monitorPort)
	}
	if p.phaseTimeout > 0 {
		builder = builder.WithPhaseTimeout(p.phaseTimeout)
	}
	if p.poolSize > 0 {
		builder = builder.WithPoolSize(p.poolSize)
	}
	if p.metricsOn {
		builder = builder.WithMetrics()
	}
	if p.traceOn {
		builder = builder.WithLevelTracing()
	}
	if p.output != "" {
		builder = builder.WithOutputFileName(p.output)
	}

	return builder.Build()
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}

	return v
}

func printLevels(core *sim.Simulation) {
	for id := 0; id < core.WireCount(); id++ {
		w, err := core.Wire(sim.ID(id))
		if err != nil {
			continue
		}

		fmt.Printf("  %-8s pull=%-4s level=%.4f\n",
			w.Name(), w.Pull(), float64(w.Measure()))
	}
}
