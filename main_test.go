package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

const exampleReport = "mesh/testdata/example.txt"

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	input  string
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }

func (m *mockApp) RunAlign(input string) error {
	m.called["RunAlign"] = true
	m.input = input
	return m.err
}

func (m *mockApp) RunRender(input string) error {
	m.called["RunRender"] = true
	m.input = input
	return m.err
}

func (m *mockApp) RunExport(input string) error {
	m.called["RunExport"] = true
	m.input = input
	return m.err
}

func (m *mockApp) RunService() error {
	m.called["RunService"] = true
	return m.err
}

func TestRun_Commands(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Align",
			args:           []string{"align", exampleReport},
			expectedCalled: "RunAlign",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.ConfigFile != defaultConfigFile {
					t.Errorf("expected ConfigFile %s, got %s", defaultConfigFile, opts.ConfigFile)
				}
				if opts.Reference != -1 {
					t.Errorf("expected Reference -1, got %d", opts.Reference)
				}
				if opts.JSON {
					t.Error("expected JSON false")
				}
			},
		},
		{
			name:           "AlignJSONWithOverrides",
			args:           []string{"--reference", "2", "--min-overlap", "6", "--workers", "3", "align", "--json", "--cache", "out.json", exampleReport},
			expectedCalled: "RunAlign",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Reference != 2 {
					t.Errorf("expected Reference 2, got %d", opts.Reference)
				}
				if opts.MinOverlap != 6 {
					t.Errorf("expected MinOverlap 6, got %d", opts.MinOverlap)
				}
				if opts.Workers != 3 {
					t.Errorf("expected Workers 3, got %d", opts.Workers)
				}
				if !opts.JSON {
					t.Error("expected JSON true")
				}
				if opts.CachePath != "out.json" {
					t.Errorf("expected CachePath out.json, got %s", opts.CachePath)
				}
			},
		},
		{
			name:           "RenderDefaults",
			args:           []string{"render", exampleReport},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.OutputFile != "plan.svg" {
					t.Errorf("expected OutputFile plan.svg, got %s", opts.OutputFile)
				}
				if opts.RenderFormat != "svg" {
					t.Errorf("expected RenderFormat svg, got %s", opts.RenderFormat)
				}
			},
		},
		{
			name:           "RenderRaster",
			args:           []string{"render", "-o", "plan.png", "--format", "raster", exampleReport},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.OutputFile != "plan.png" {
					t.Errorf("expected OutputFile plan.png, got %s", opts.OutputFile)
				}
				if opts.RenderFormat != "raster" {
					t.Errorf("expected RenderFormat raster, got %s", opts.RenderFormat)
				}
			},
		},
		{
			name:           "Export",
			args:           []string{"export", exampleReport},
			expectedCalled: "RunExport",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.OutputFile != "beacons.geojson" {
					t.Errorf("expected OutputFile beacons.geojson, got %s", opts.OutputFile)
				}
			},
		},
		{
			name:           "Serve",
			args:           []string{"--config", "site.yaml", "--debug", "serve", "--port", "9090", "--poll", "30s"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.ConfigFile != "site.yaml" {
					t.Errorf("expected ConfigFile site.yaml, got %s", opts.ConfigFile)
				}
				if !opts.Debug {
					t.Error("expected Debug true")
				}
				if opts.HTTPPort != 9090 {
					t.Errorf("expected HTTPPort 9090, got %d", opts.HTTPPort)
				}
				if opts.PollInterval != 30*time.Second {
					t.Errorf("expected PollInterval 30s, got %s", opts.PollInterval)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			if err := run(tt.args, &out, app); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called, called: %v", tt.expectedCalled, app.called)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one command, called: %v", app.called)
			}
			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_InputPassedThrough(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"export", exampleReport}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasSuffix(app.input, "example.txt") {
		t.Errorf("expected input to end in example.txt, got %s", app.input)
	}
}

func TestRun_CommandError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	var out bytes.Buffer
	err := run([]string{"align", exampleReport}, &out, app)
	if err == nil || err.Error() != "boom" {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRun_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"NoCommand", []string{}},
		{"UnknownCommand", []string{"calibrate"}},
		{"MissingInput", []string{"align"}},
		{"InputDoesNotExist", []string{"align", "no/such/report.txt"}},
		{"BadFormat", []string{"render", "--format", "gif", exampleReport}},
		{"BadPoll", []string{"serve", "--poll", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err == nil {
				t.Fatal("expected an error")
			}
			var exit *exitError
			if errors.As(err, &exit) {
				t.Errorf("expected a parse error, got exit %d", exit.code)
			}
			if len(app.called) != 0 {
				t.Errorf("expected no command to run, called: %v", app.called)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)

	var exit *exitError
	if !errors.As(err, &exit) {
		t.Fatalf("expected exitError from --help, got %v", err)
	}
	if exit.code != 0 {
		t.Errorf("expected exit code 0, got %d", exit.code)
	}
	if !strings.Contains(out.String(), "Usage: beaconmesh") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
	for _, cmd := range []string{"align", "render", "export", "serve"} {
		if !strings.Contains(out.String(), cmd) {
			t.Errorf("expected help to list %s, got: %s", cmd, out.String())
		}
	}
	if len(app.called) != 0 {
		t.Errorf("expected no command to run, called: %v", app.called)
	}
}

func TestRun_Version(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--version"}, &out, app)

	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 0 {
		t.Fatalf("expected exit 0 from --version, got %v", err)
	}
	if !strings.Contains(out.String(), "beaconmesh "+Version) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
