// Lightshow compiles music-timed lighting sequences into frame stores and
// plays them to DMX receivers over UDP.
//
// Usage:
//
//	lightshow [-config path] [serve]   compile everything, then serve the control API
//	lightshow [-config path] compile   compile everything and exit
//	lightshow hash-password            read a password on stdin, print its argon2id hash
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/lightshow-core/internal/api"
	"github.com/nerrad567/lightshow-core/internal/auth"
	"github.com/nerrad567/lightshow-core/internal/dashboard"
	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/discovery"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/config"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/database"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/logging"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightshow-core/internal/playback"
	"github.com/nerrad567/lightshow-core/internal/process"
	"github.com/nerrad567/lightshow-core/internal/sequence"
	"github.com/nerrad567/lightshow-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// Sub-commands.
const (
	cmdServe        = "serve"
	cmdCompile      = "compile"
	cmdHashPassword = "hash-password"
)

// errCompileFailed is returned by the compile command when any sequence
// failed, so scripts can tell from the exit code.
var errCompileFailed = errors.New("one or more sequences failed to compile")

type options struct {
	configPath string
	command    string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.command == cmdHashPassword {
		err = hashPassword(os.Stdin, os.Stdout)
	} else {
		err = run(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs reads the flags and the optional sub-command.
func parseArgs(args []string) (options, error) {
	fsFlags := flag.NewFlagSet("lightshow", flag.ContinueOnError)
	configPath := fsFlags.String("config", getConfigPath(), "path to config.yaml (env LIGHTSHOW_CONFIG)")
	if err := fsFlags.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{configPath: *configPath, command: cmdServe}
	switch rest := fsFlags.Args(); len(rest) {
	case 0:
	case 1:
		opts.command = rest[0]
	default:
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[1:], " "))
	}
	if !slices.Contains([]string{cmdServe, cmdCompile, cmdHashPassword}, opts.command) {
		return options{}, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

// getConfigPath returns the configuration file path.
// Uses LIGHTSHOW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LIGHTSHOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// hashPassword reads one line from in and writes its PHC hash to out.
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// busPublisher is the PublishJSON method shared by the compiler, the
// player and the receiver. It stays a nil interface when MQTT is off.
type busPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Config path and sub-command
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting lightshow",
		"version", version,
		"commit", commit,
		"build_date", date,
		"command", opts.command,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", opts.configPath, "show", cfg.Show.ID)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry, err := device.LoadStage(cfg.Render.StageFile)
	if err != nil {
		return fmt.Errorf("loading stage: %w", err)
	}
	registry.SetLogger(log)
	log.Info("stage loaded", "devices", registry.Len(), "width", registry.Width())

	// The message bus and telemetry are optional; the show runs without them.
	var bus busPublisher
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		bus = mqttClient
		log.Info("MQTT connected", "broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Show.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	runs := sequence.NewSQLiteRepository(db.DB)
	manager, err := newSequenceManager(cfg, registry, runs, bus, influxClient, log)
	if err != nil {
		return err
	}

	outcomes, planErr := manager.CompileAll(ctx)
	if planErr != nil {
		log.Warn("manifest problems", "error", planErr)
	}
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			log.Error("sequence failed", "sequence", o.Name, "error", o.Err)
		}
	}

	if opts.command == cmdCompile {
		if failed > 0 || planErr != nil {
			return errCompileFailed
		}
		log.Info("compile finished", "sequences", len(outcomes))
		return nil
	}

	return serve(ctx, cfg, opts, serveDeps{
		db:       db,
		registry: registry,
		manager:  manager,
		runs:     runs,
		bus:      bus,
		mqtt:     mqttClient,
		influx:   influxClient,
		log:      log,
	})
}

// newSequenceManager builds the library, manifest, compiler and manager.
func newSequenceManager(
	cfg *config.Config,
	registry *device.Registry,
	runs sequence.Repository,
	bus busPublisher,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*sequence.Manager, error) {
	var telemetry sequence.Telemetry
	if influxClient != nil {
		telemetry = influxClient
	}

	compiler, err := sequence.NewCompiler(sequence.CompilerConfig{
		Devices:       registry,
		OutputDir:     cfg.Render.OutputDir,
		PulsesPerBeat: cfg.Render.PulsesPerBeat,
		Runs:          runs,
		Publisher:     bus,
		Telemetry:     telemetry,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating compiler: %w", err)
	}

	library := sequence.NewDefaultLibrary()
	loaded, err := library.LoadDir(cfg.Render.SequencesDir, cfg.Render.Manifest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && len(loaded) == 0 {
			log.Info("no sequences directory, using built-in sequences", "dir", cfg.Render.SequencesDir)
		} else {
			log.Warn("some cue files failed to load", "dir", cfg.Render.SequencesDir, "error", err)
		}
	}
	log.Info("sequence library loaded", "sequences", library.Len(), "from_files", len(loaded))

	// A missing manifest compiles the whole library.
	var manifest *sequence.Manifest
	if cfg.Render.Manifest != "" {
		manifest, err = sequence.LoadManifest(filepath.Join(cfg.Render.SequencesDir, cfg.Render.Manifest))
		if err != nil {
			return nil, fmt.Errorf("loading manifest: %w", err)
		}
	}

	return sequence.NewManager(sequence.ManagerConfig{
		Compiler: compiler,
		Library:  library,
		Manifest: manifest,
		BaseDir:  cfg.Render.SequencesDir,
		Defaults: sequence.Meta{FrameRate: cfg.Render.FrameRate},
		Workers:  cfg.Render.Workers,
		Logger:   log,
	}), nil
}

type serveDeps struct {
	db       *database.DB
	registry *device.Registry
	manager  *sequence.Manager
	runs     sequence.Repository
	bus      busPublisher
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	log      *logging.Logger
}

// serve runs the player and the control API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, opts options, d serveDeps) error {
	log := d.log

	if cfg.Simulator.Managed.Enabled {
		sim := startSimulator(ctx, cfg, opts.configPath, log)
		if sim != nil {
			defer func() {
				log.Info("stopping managed simulator")
				if err := sim.Stop(); err != nil {
					log.Error("error stopping simulator", "error", err)
				}
			}()
		}
	}

	endpoints := resolveEndpoints(ctx, cfg, d.registry.Width(), log)
	sender, err := playback.NewUDPSender(endpoints, log)
	if err != nil {
		return fmt.Errorf("opening UDP sender: %w", err)
	}
	defer sender.Close() //nolint:errcheck // shutdown path
	log.Info("playback endpoints", "endpoints", sender.Endpoints())

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	var telemetry playback.Telemetry
	if d.influx != nil {
		telemetry = d.influx
	}
	sessions := playback.NewSQLiteRepository(d.db.DB)
	player := playback.NewController(playback.ControllerConfig{
		Loader:    playback.StoreLoader{Compiler: d.manager.Compiler()},
		Sink:      sender,
		Sessions:  sessions,
		Publisher: d.bus,
		Telemetry: telemetry,
		Logger:    log,
		Endpoints: sender.Endpoints(),
		OnStatus:  hub.PlaybackStatus,
	})
	defer func() {
		log.Info("stopping playback")
		if err := player.Close(); err != nil {
			log.Error("error stopping playback", "error", err)
		}
	}()

	if d.mqtt != nil {
		topic := mqtt.Topics{}.PlaybackCommand()
		if err := d.mqtt.Subscribe(topic, byte(cfg.MQTT.QoS), player.CommandHandler(ctx)); err != nil {
			return fmt.Errorf("subscribing to playback commands: %w", err)
		}
		log.Info("accepting playback commands", "topic", topic)
	}

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log,
			Registry:  d.registry,
			Sequences: d.manager,
			Runs:      d.runs,
			Playback:  player,
			Sessions:  sessions,
			Dashboard: dashboard.Handler(""),
			Hub:       hub,
			Version:   version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if err := server.Close(); err != nil {
				log.Error("error closing API server", "error", err)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, d.db, d.mqtt, d.influx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// resolveEndpoints returns the configured endpoints plus any simulators
// found over mDNS with a matching universe width.
func resolveEndpoints(ctx context.Context, cfg *config.Config, width int, log *logging.Logger) []string {
	endpoints := slices.Clone(cfg.Playback.Endpoints)
	if !cfg.Playback.Discovery {
		return endpoints
	}

	timeout := time.Duration(cfg.Playback.DiscoveryTimeout) * time.Second
	services, err := discovery.Browse(ctx, timeout, nil)
	if err != nil {
		log.Warn("simulator discovery failed", "error", err)
		return endpoints
	}
	for _, ep := range discovery.Endpoints(services, width) {
		if !slices.Contains(endpoints, ep) {
			endpoints = append(endpoints, ep)
		}
	}
	log.Info("simulator discovery finished", "found", len(services), "endpoints", len(endpoints))
	return endpoints
}

// startSimulator launches dmxsim as a supervised child reading the same
// config file. A launch failure is logged; playback still runs.
func startSimulator(ctx context.Context, cfg *config.Config, configPath string, log *logging.Logger) *process.Supervisor {
	m := cfg.Simulator.Managed
	sup := process.NewSupervisor(process.Config{
		Name:               "dmxsim",
		Binary:             m.Binary,
		Args:               []string{"-config", configPath},
		RestartOnFailure:   m.RestartOnFailure,
		RestartDelay:       time.Duration(m.RestartDelaySeconds) * time.Second,
		MaxRestartAttempts: m.MaxRestartAttempts,
		OnExit: func(err error) {
			if err != nil {
				log.Warn("managed simulator exited", "error", err)
			}
		},
	})
	sup.SetLogger(log)
	if err := sup.Start(ctx); err != nil {
		log.Error("managed simulator failed to start", "binary", m.Binary, "error", err)
		return nil
	}
	log.Info("managed simulator started", "pid", sup.PID(), "listen", cfg.Simulator.Listen)
	return sup
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
