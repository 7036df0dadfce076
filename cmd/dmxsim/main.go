// Dmxsim is a software DMX receiver. It listens for universe datagrams on
// UDP, decodes them against the stage description and shows the fixture
// state on the terminal, over MQTT and on the dashboard feed.
//
// Usage:
//
//	dmxsim [-config path] [-listen addr] [-api addr] [-console] [-advertise]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/lightshow-core/internal/api"
	"github.com/nerrad567/lightshow-core/internal/dashboard"
	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/discovery"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/config"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/logging"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightshow-core/internal/receiver"
)

var version = "dev"

const (
	defaultConfigPath   = "configs/config.yaml"
	statsReportInterval = 10 * time.Second
)

type options struct {
	configPath string
	listen     string
	apiAddr    string

	// console and advertise are nil unless given on the command line.
	console   *bool
	advertise *bool

	// out receives the text renderer when the console is off.
	out io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	opts.out = os.Stdout

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	fsFlags := flag.NewFlagSet("dmxsim", flag.ContinueOnError)
	configPath := fsFlags.String("config", getConfigPath(), "path to config.yaml (env LIGHTSHOW_CONFIG)")
	listen := fsFlags.String("listen", "", "UDP listen address (overrides simulator.listen)")
	apiAddr := fsFlags.String("api", "", "serve the state API and dashboard on host:port")
	consoleFlag := fsFlags.Bool("console", false, "interactive inspection console (overrides simulator.console)")
	advertiseFlag := fsFlags.Bool("advertise", false, "advertise over mDNS (overrides simulator.advertise)")
	if err := fsFlags.Parse(args); err != nil {
		return options{}, err
	}
	if fsFlags.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fsFlags.Args())
	}

	opts := options{configPath: *configPath, listen: *listen, apiAddr: *apiAddr}
	fsFlags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "console":
			opts.console = consoleFlag
		case "advertise":
			opts.advertise = advertiseFlag
		}
	})
	return opts, nil
}

func getConfigPath() string {
	if path := os.Getenv("LIGHTSHOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// apiConfig turns "host:port" into the API server settings.
func apiConfig(base config.APIConfig, addr string) (config.APIConfig, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return base, fmt.Errorf("api address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return base, fmt.Errorf("api address %q: invalid port", addr)
	}
	base.Host, base.Port = host, port
	return base, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sim := cfg.Simulator
	if opts.listen != "" {
		sim.Listen = opts.listen
	}
	if opts.console != nil {
		sim.Console = *opts.console
	}
	if opts.advertise != nil {
		sim.Advertise = *opts.advertise
	}

	registry, err := device.LoadStage(cfg.Render.StageFile)
	if err != nil {
		return fmt.Errorf("loading stage: %w", err)
	}

	// The console owns the terminal; logs go through its stderr.
	var con *console
	log := logging.New(cfg.Logging, version)
	if sim.Console {
		con, err = newConsole()
		if err != nil {
			return err
		}
		defer con.Close()
		log = logging.NewWithWriter(cfg.Logging, version, con.Stderr())
	}
	log = log.With("component", "dmxsim")

	rx, err := receiver.New(registry, receiver.Config{
		Listen:      sim.Listen,
		BufferSize:  sim.BufferSize,
		ReadTimeout: sim.ReadTimeoutDuration(),
		Seed:        uint64(sim.Seed), //nolint:gosec // any seed is fine
		Policy:      receiver.Policy(sim.ShortPayload),
	}, log)
	if err != nil {
		return fmt.Errorf("creating receiver: %w", err)
	}
	if con != nil {
		con.sim = rx
	}
	if err := rx.Listen(); err != nil {
		return err
	}
	defer rx.Close() //nolint:errcheck // shutdown path
	log.Info("receiver listening",
		"addr", rx.Addr().String(),
		"devices", len(rx.Devices()),
		"width", rx.Width(),
		"short_payload", sim.ShortPayload,
	)

	var renderers []receiver.Renderer
	if con == nil {
		renderers = append(renderers, &receiver.TextRenderer{W: opts.out, Devices: rx.Devices()})
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer client.Close() //nolint:errcheck // shutdown path
		client.SetLogger(log)
		renderers = append(renderers, &receiver.StatePublisher{Publisher: client})
		log.Info("publishing device state over MQTT")
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.Show.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer influxClient.Close() //nolint:errcheck // shutdown path
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write error", "error", err)
		})
		g.Go(func() error {
			rx.ReportStats(gctx, influxClient, statsReportInterval)
			return nil
		})
	}

	if opts.apiAddr != "" {
		apiCfg, err := apiConfig(cfg.API, opts.apiAddr)
		if err != nil {
			return err
		}
		hub := api.NewHub(cfg.WebSocket, log)
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		renderers = append(renderers, hub.StateRenderer())

		server, err := api.New(api.Deps{
			Config:    apiCfg,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log,
			Registry:  registry,
			State:     rx,
			Dashboard: dashboard.Handler(""),
			Hub:       hub,
			Version:   version,
		})
		if err != nil {
			return err
		}
		if err := server.Start(gctx); err != nil {
			return err
		}
		defer server.Close() //nolint:errcheck // shutdown path
	}

	if sim.Advertise {
		host, _ := os.Hostname()
		adv, err := discovery.Advertise(discovery.Info{
			Instance: fmt.Sprintf("%s-%s", cfg.Show.ID, host),
			Port:     rx.Addr().Port,
			Width:    rx.Width(),
			Version:  version,
		}, nil)
		if err != nil {
			log.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Stop()
			log.Info("advertising over mDNS", "service", discovery.ServiceType)
		}
	}

	loop := &receiver.RenderLoop{
		Source:    rx,
		Renderers: renderers,
		Rate:      float64(sim.RenderRate),
		Logger:    log,
	}
	g.Go(func() error { return rx.Run(gctx) })
	g.Go(func() error { return loop.Run(gctx) })
	if con != nil {
		g.Go(func() error { return con.Run(gctx, cancel) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s := rx.Stats()
	log.Info("receiver stopped", "received", s.Received, "rejected", s.Rejected, "timeouts", s.Timeouts)
	return err
}
