package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kwv/beaconmesh/mesh"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App encapsulates the application state and dependencies
type App struct {
	Config       *mesh.Config
	StateTracker *mesh.StateTracker
	MQTTClient   *mesh.MQTTClient
	Publisher    *mesh.Publisher
	Aligner      *mesh.AutoAligner
	Out          io.Writer

	// CLI options
	ConfigFile   string
	Reference    int
	MinOverlap   int
	Workers      int
	JSON         bool
	CachePath    string
	OutputFile   string
	RenderFormat string
	HTTPPort     int
	PollInterval time.Duration

	connectMQTT func(*mesh.Config, mesh.MessageHandler) (*mesh.MQTTClient, error)
}

// NewApp creates a new App writing command output to out
func NewApp(out io.Writer) *App {
	return &App{
		StateTracker: mesh.NewStateTracker(),
		Out:          out,
		ConfigFile:   defaultConfigFile,
		Reference:    -1,
		connectMQTT:  mesh.InitMQTT,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Reference = opts.Reference
	a.MinOverlap = opts.MinOverlap
	a.Workers = opts.Workers
	a.JSON = opts.JSON
	a.CachePath = opts.CachePath
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.HTTPPort = opts.HTTPPort
	a.PollInterval = opts.PollInterval
}

// loadConfig reads the config file and layers the CLI overrides on top.
// A missing default config file means defaults; a missing explicit one is an error.
func (a *App) loadConfig() error {
	var cfg *mesh.Config
	if _, err := os.Stat(a.ConfigFile); os.IsNotExist(err) && a.ConfigFile == defaultConfigFile {
		log.Debug().Str("path", a.ConfigFile).Msg("no config file, using defaults")
		cfg = mesh.DefaultConfig()
	} else {
		cfg, err = mesh.LoadConfig(a.ConfigFile)
		if err != nil {
			return err
		}
	}

	if a.Reference >= 0 {
		cfg.Alignment.Reference = a.Reference
	}
	if a.MinOverlap > 0 {
		cfg.Alignment.MinOverlap = a.MinOverlap
	}
	if a.Workers > 0 {
		cfg.Alignment.Workers = a.Workers
	}
	if a.HTTPPort > 0 {
		cfg.HTTP.Port = a.HTTPPort
	}

	for _, sc := range cfg.Scanners {
		if sc.Color != "" {
			a.StateTracker.SetColor(sc.ID, sc.Color)
		}
	}

	a.Config = cfg
	return nil
}

// alignFile loads the config, parses a report file and aligns it.
// The returned names label scanners by index.
func (a *App) alignFile(input string) (*mesh.Alignment, []string, error) {
	if err := a.loadConfig(); err != nil {
		return nil, nil, err
	}

	reports, err := mesh.ParseReportFile(input)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(reports))
	for i, r := range reports {
		names[i] = r.Name
	}

	alignment, err := mesh.Align(context.Background(), mesh.Clouds(reports), a.Config.AlignOptions())
	if err != nil {
		return nil, nil, err
	}
	return alignment, names, nil
}

// scannerColors resolves the display colour of every named scanner
func scannerColors(st *mesh.StateTracker, names []string) []string {
	colors := make([]string, len(names))
	for i, name := range names {
		colors[i] = st.Color(name, i)
	}
	return colors
}

// RunAlign prints the unique beacon count and the largest Manhattan distance
// between scanner origins, or the full alignment as JSON
func (a *App) RunAlign(input string) error {
	alignment, names, err := a.alignFile(input)
	if err != nil {
		return err
	}
	cache := mesh.NewAlignmentCache(alignment, names)

	if a.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cache); err != nil {
			return fmt.Errorf("encoding alignment: %w", err)
		}
	} else {
		fmt.Fprintf(a.Out, "%d\n%d\n", alignment.UniqueBeacons(), alignment.MaxManhattan)
	}

	if a.CachePath != "" {
		if err := mesh.SaveAlignment(a.CachePath, cache); err != nil {
			return err
		}
		log.Info().Str("path", a.CachePath).Msg("saved alignment cache")
	}
	return nil
}

// RunRender draws a plan of the aligned report. svg and png use the vector
// renderer; raster uses the pixel renderer.
func (a *App) RunRender(input string) error {
	alignment, names, err := a.alignFile(input)
	if err != nil {
		return err
	}
	colors := scannerColors(a.StateTracker, names)

	if a.RenderFormat == "raster" {
		if err := mesh.NewPlanRenderer(alignment, names, colors).SavePNG(a.OutputFile); err != nil {
			return err
		}
	} else {
		f, err := os.Create(a.OutputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		vr := mesh.NewVectorRenderer(alignment, colors)
		switch a.RenderFormat {
		case "png":
			err = vr.RenderToPNG(f)
		default:
			err = vr.RenderToSVG(f)
		}
		if err != nil {
			return fmt.Errorf("rendering %s: %w", a.RenderFormat, err)
		}
	}

	fmt.Fprintf(a.Out, "Wrote %s (%d beacons, %d scanners)\n", a.OutputFile, alignment.UniqueBeacons(), alignment.Scanners())
	return nil
}

// RunExport writes the aligned report as a GeoJSON FeatureCollection
func (a *App) RunExport(input string) error {
	alignment, names, err := a.alignFile(input)
	if err != nil {
		return err
	}

	fc := mesh.AlignmentToFeatureCollection(alignment, names, scannerColors(a.StateTracker, names))
	if err := mesh.SaveGeoJSON(a.OutputFile, fc); err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Wrote %s (%d features)\n", a.OutputFile, len(fc.Features))
	return nil
}

// RunService runs the MQTT and HTTP service until SIGINT or SIGTERM
func (a *App) RunService() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.Config.HTTP.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", a.Config.HTTP.Port, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.runService(ctx, ln)
}

// runService serves on ln until ctx is done. a.Config must already be loaded.
func (a *App) runService(ctx context.Context, ln net.Listener) error {
	if len(a.Config.Scanners) == 0 {
		ln.Close()
		return fmt.Errorf("no scanners configured in %s", a.ConfigFile)
	}

	cachePath := a.Config.Cache
	if cachePath == "" {
		cachePath = mesh.DefaultAlignmentCachePath
	}
	cache, err := mesh.LoadAlignment(cachePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cachePath).Msg("ignoring unreadable alignment cache")
		cache = nil
	}
	if cache != nil {
		log.Info().Str("run", cache.RunID).Int("beacons", cache.Beacons).Msg("loaded alignment cache")
	}

	a.Aligner = mesh.NewAutoAligner(a.Config, cache, cachePath, a.StateTracker)
	a.Aligner.OnAligned(a.publishAlignment)

	a.MQTTClient, err = a.connectMQTT(a.Config, a.Aligner.OnReport)
	if err != nil {
		ln.Close()
		return fmt.Errorf("initializing MQTT: %w", err)
	}
	if a.MQTTClient != nil {
		a.Publisher = mesh.NewPublisher(a.MQTTClient.GetClient(), a.Config.MQTT.PublishPrefix)
		defer a.MQTTClient.Disconnect()
	}

	server := &http.Server{
		Handler:           newHTTPServer(a.StateTracker, a.Aligner, a.Config),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.fetchAndAlign(gctx)
		if a.PollInterval <= 0 {
			return nil
		}
		ticker := time.NewTicker(a.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.fetchAndAlign(gctx)
			}
		}
	})

	return g.Wait()
}

// fetchAndAlign pulls reports from API scanners and realigns if every
// scanner has reported. Failures are logged; the previous alignment stays.
func (a *App) fetchAndAlign(ctx context.Context) {
	hasAPI := false
	for _, sc := range a.Config.Scanners {
		if sc.ApiURL != nil && *sc.ApiURL != "" {
			hasAPI = true
			break
		}
	}
	if !hasAPI {
		return
	}

	if err := a.Aligner.FetchReports(ctx); err != nil {
		log.Warn().Err(err).Msg("fetching scanner reports")
	}
	if _, err := a.Aligner.Realign(ctx, false); err != nil {
		log.Error().Err(err).Msg("realignment failed, keeping previous alignment")
	}
}

// publishAlignment is the AutoAligner callback; it is a no-op without MQTT
func (a *App) publishAlignment(alignment *mesh.Alignment, scannerIDs []string) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishAlignment(alignment, scannerIDs); err != nil {
		log.Warn().Err(err).Msg("publishing alignment")
	}
}
