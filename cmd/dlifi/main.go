// Dlifi — street-lamp mesh node.
//
// Runs a node of the flood-routed infrared mesh: `dlifi hq` for the
// headquarters (host bridge + dashboard), `dlifi lamp` for a street lamp
// (SOS button + LiFi downlink), `dlifi sim` for an in-memory demo field.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vassu-v/D-LiFi-Proto/internal/app"
	"github.com/vassu-v/D-LiFi-Proto/internal/bridge"
	"github.com/vassu-v/D-LiFi-Proto/internal/config"
	"github.com/vassu-v/D-LiFi-Proto/internal/ir"
	"github.com/vassu-v/D-LiFi-Proto/internal/sim"
	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

var version = "dev"

var (
	flagID     string
	flagConfig string
	flagSerial string
	flagBaud   int
	flagDebug  bool

	flagListen    string
	flagDashboard string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &cobra.Command{
		Use:           "dlifi",
		Short:         "Flood-routed infrared mesh for street-lamp fields",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flagDebug {
				util.EnableDebug()
			}
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config overlay")
	root.PersistentFlags().StringVar(&flagSerial, "serial", "", "IR head serial device (loopback when empty)")
	root.PersistentFlags().IntVar(&flagBaud, "baud", 0, "IR head baud rate")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	hqCmd := &cobra.Command{
		Use:   "hq",
		Short: "Run the headquarters node",
		RunE: func(*cobra.Command, []string) error {
			return runHQ(ctx)
		},
	}
	hqCmd.Flags().StringVar(&flagID, "id", "000h", "HQ node id (4 chars)")
	hqCmd.Flags().StringVar(&flagListen, "listen", "", "host bridge listen address")
	hqCmd.Flags().StringVar(&flagDashboard, "dashboard", "", "WebSocket dashboard listen address")

	lampCmd := &cobra.Command{
		Use:   "lamp",
		Short: "Run a street-lamp node",
		RunE: func(*cobra.Command, []string) error {
			return runLamp(ctx)
		},
	}
	lampCmd.Flags().StringVar(&flagID, "id", "", "lamp node id (4 chars)")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "Run an in-memory five-node demo field",
		Run: func(*cobra.Command, []string) {
			sim.RunDemo()
		},
	}

	root.AddCommand(hqCmd, lampCmd, simCmd)

	if err := root.Execute(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

func runHQ(ctx context.Context) error {
	cfg, err := loadConfig(config.DefaultHQ(flagID))
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.BridgeListen = flagListen
	}
	if flagDashboard != "" {
		cfg.DashboardListen = flagDashboard
	}

	drv, cleanup, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	node, err := app.NewNode(cfg, drv)
	if err != nil {
		return err
	}

	srv := bridge.NewServer()
	addr, err := srv.Start(cfg.BridgeListen)
	if err != nil {
		return err
	}
	defer srv.Close()
	util.LogInfo("host bridge listening on %s", addr)

	if cfg.DashboardListen != "" {
		wsAddr, err := srv.StartDashboard(cfg.DashboardListen)
		if err != nil {
			return err
		}
		util.LogInfo("dashboard WebSocket on ws://%s/ws", wsAddr)
	}

	node.AttachBridge(srv)
	util.StartStatsReporter(ctx)
	return node.Run(ctx)
}

func runLamp(ctx context.Context) error {
	id := flagID
	if id == "" {
		id = askID()
	}
	cfg, err := loadConfig(config.DefaultLamp(id))
	if err != nil {
		return err
	}

	drv, cleanup, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	node, err := app.NewNode(cfg, drv)
	if err != nil {
		return err
	}

	// Stand-in for the pushbutton: an "sos" line on stdin raises the alert.
	node.AttachSOS(watchStdinSOS(ctx))

	util.StartStatsReporter(ctx)
	return node.Run(ctx)
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

func loadConfig(base config.Config) (config.Config, error) {
	if flagConfig == "" {
		return base, nil
	}
	return config.Load(flagConfig, base)
}

// openDriver selects the UART-attached IR head when a device is configured,
// falling back to a loopback carrier for bench runs without hardware.
func openDriver(cfg config.Config) (ir.Driver, func(), error) {
	device := cfg.SerialDevice
	if flagSerial != "" {
		device = flagSerial
	}
	if device == "" {
		util.LogWarning("no IR head configured, using loopback carrier")
		return ir.NewLoopback(), func() {}, nil
	}

	baud := cfg.SerialBaud
	if flagBaud != 0 {
		baud = flagBaud
	}
	drv, err := ir.OpenSerial(device, baud)
	if err != nil {
		return nil, nil, err
	}
	return drv, func() { drv.Close() }, nil
}

// askID falls back to an interactive prompt when no -id flag is provided.
func askID() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Lamp node id (4 chars, e.g. 102a)").
			Show()

		id := strings.TrimSpace(raw)
		if len(id) == 4 {
			pterm.Println()
			return id
		}
		util.LogWarning("invalid node id: must be exactly 4 characters")
		pterm.Println()
	}
}

// watchStdinSOS forwards "sos" lines on stdin as button presses.
func watchStdinSOS(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		buf := make([]byte, 64)
		line := ""
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			line += string(buf[:n])
			for {
				i := strings.IndexByte(line, '\n')
				if i < 0 {
					break
				}
				if strings.EqualFold(strings.TrimSpace(line[:i]), "sos") {
					select {
					case ch <- struct{}{}:
					case <-ctx.Done():
						return
					}
				}
				line = line[i+1:]
			}
		}
	}()
	return ch
}
