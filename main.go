package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version is set at build time via -ldflags
var Version = "dev"

const defaultConfigFile = "config.yaml"

// Runner is what the CLI drives; App implements it
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunAlign(input string) error
	RunRender(input string) error
	RunExport(input string) error
	RunService() error
}

// AppOptions carries parsed command-line values into the App
type AppOptions struct {
	ConfigFile   string
	Debug        bool
	Reference    int // -1 keeps the config value
	MinOverlap   int // 0 keeps the config value
	Workers      int // 0 keeps the config value
	JSON         bool
	CachePath    string
	OutputFile   string
	RenderFormat string
	HTTPPort     int
	PollInterval time.Duration
}

type cli struct {
	Config     string           `help:"Path to configuration file." default:"config.yaml"`
	Debug      bool             `help:"Whether to enable debug logging."`
	Version    kong.VersionFlag `help:"Print version information and exit." short:"v"`
	Reference  int              `help:"Index of the reference scanner (default: from config, else 0)." default:"-1"`
	MinOverlap int              `help:"Shared beacons required before two scanners are related." name:"min-overlap"`
	Workers    int              `help:"Concurrent pair matchers (default: one per CPU)."`

	Align struct {
		Input string `arg:"" help:"Scanner report file." type:"existingfile"`
		JSON  bool   `help:"Print the full alignment as JSON."`
		Cache string `help:"Also write the alignment cache to this path."`
	} `cmd:"" help:"Align a scanner report and print the beacon count and the largest scanner distance."`

	Render struct {
		Input  string `arg:"" help:"Scanner report file." type:"existingfile"`
		Output string `help:"Output file." short:"o" default:"plan.svg"`
		Format string `help:"Output format." enum:"svg,png,raster" default:"svg"`
	} `cmd:"" help:"Render a top-down plan of the aligned beacons."`

	Export struct {
		Input  string `arg:"" help:"Scanner report file." type:"existingfile"`
		Output string `help:"Output file." short:"o" default:"beacons.geojson"`
	} `cmd:"" help:"Export the aligned beacons and scanners as GeoJSON."`

	Serve struct {
		Port int           `help:"HTTP port (default: from config)."`
		Poll time.Duration `help:"Re-fetch API scanners at this interval; 0 fetches once at startup."`
	} `cmd:"" help:"Run the MQTT and HTTP alignment service."`
}

// exitError reports that kong asked to exit, for --help and --version
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// run parses args, applies options to app and runs the selected command.
// Usage and version output go to out.
func run(args []string, out io.Writer, app Runner) error {
	var c cli
	exitCode := -1

	parser, err := kong.New(&c,
		kong.Name("beaconmesh"),
		kong.Description("Align 3-D beacon scanners into one reference frame."),
		kong.Writers(out, out),
		kong.Exit(func(code int) { exitCode = code }),
		kong.Vars{"version": fmt.Sprintf("beaconmesh %s", Version)},
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return &exitError{code: exitCode}
	}
	if err != nil {
		return err
	}

	if c.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("debug logging enabled")
	}

	opts := AppOptions{
		ConfigFile: c.Config,
		Debug:      c.Debug,
		Reference:  c.Reference,
		MinOverlap: c.MinOverlap,
		Workers:    c.Workers,
	}

	switch ctx.Command() {
	case "align <input>":
		opts.JSON = c.Align.JSON
		opts.CachePath = c.Align.Cache
		app.ApplyOptions(opts)
		return app.RunAlign(c.Align.Input)
	case "render <input>":
		opts.OutputFile = c.Render.Output
		opts.RenderFormat = c.Render.Format
		app.ApplyOptions(opts)
		return app.RunRender(c.Render.Input)
	case "export <input>":
		opts.OutputFile = c.Export.Output
		app.ApplyOptions(opts)
		return app.RunExport(c.Export.Input)
	case "serve":
		opts.HTTPPort = c.Serve.Port
		opts.PollInterval = c.Serve.Poll
		app.ApplyOptions(opts)
		return app.RunService()
	default:
		return fmt.Errorf("unknown command %q", ctx.Command())
	}
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout))
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}
