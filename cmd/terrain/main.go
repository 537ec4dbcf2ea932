package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-terrain/internal/config"
	"github.com/joeblew999/plat-terrain/internal/contour"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
	"github.com/joeblew999/plat-terrain/internal/server"
)

// Options defines all CLI flags and env vars for the terrain server.
// Flags: --host, --port, --data-dir, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory holding regions/ and borders/" default:".data"`
	Config  string `doc:"Pipeline defaults YAML file" default:"terrain.yaml"`
}

func newServer(opts *Options) (*server.Server, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:     opts.Host,
		Port:     fmt.Sprintf("%d", opts.Port),
		DataDir:  opts.DataDir,
		Pipeline: cfg,
	}), nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv, err := newServer(opts)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-terrain API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Config:  %s\n", opts.Config)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Events:  %s/api/v1/events\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			if err := srv.Close(); err != nil {
				log.Printf("closing server: %v", err)
			}
		})
	})

	cli.Root().Use = "terrain"
	cli.Root().Short = "Elevation raster pipeline for terrain visualizers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// aggregate subcommand: run the pipeline over one raster file offline
	aggregateCmd := &cobra.Command{
		Use:   "aggregate <raster.json>",
		Short: "Aggregate a raster file and print a YAML summary",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if err := applyAggregateFlags(cmd, &cfg.Pipeline); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			style, _ := cmd.Flags().GetString("style")
			summary, err := aggregate(args[0], cfg.Pipeline, style)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			out, err := yaml.Marshal(summary)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling summary: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		}),
	}
	aggregateCmd.Flags().IntP("bucket", "n", 0, "Bucket size (defaults to the config value)")
	aggregateCmd.Flags().StringP("reducer", "r", "", "Reducer: max, min, average or median")
	aggregateCmd.Flags().StringP("layout", "l", "", "Layout mode: bars, points or surface")
	aggregateCmd.Flags().Float64P("interval", "i", 0, "Contour interval in meters")
	aggregateCmd.Flags().String("style", contour.FirstCrossing.String(), "Contour style: first-crossing or cell-segments")
	cli.Root().AddCommand(aggregateCmd)

	cli.Run()
}

// applyAggregateFlags overrides the pipeline defaults with the flags that were set.
func applyAggregateFlags(cmd *cobra.Command, p *config.Pipeline) error {
	flags := cmd.Flags()
	if flags.Changed("bucket") {
		p.BucketSize, _ = flags.GetInt("bucket")
	}
	if flags.Changed("reducer") {
		s, _ := flags.GetString("reducer")
		r, err := raster.ParseReducer(s)
		if err != nil {
			return err
		}
		p.Reducer = r
	}
	if flags.Changed("layout") {
		s, _ := flags.GetString("layout")
		m, err := layout.ParseMode(s)
		if err != nil {
			return err
		}
		p.Layout = m
	}
	if flags.Changed("interval") {
		p.ContourInterval, _ = flags.GetFloat64("interval")
	}
	return nil
}

type aggregateSummary struct {
	File     string         `yaml:"file"`
	Width    int            `yaml:"width"`
	Height   int            `yaml:"height"`
	Bounds   raster.Bounds  `yaml:"bounds"`
	Scale    raster.Scale   `yaml:"scale"`
	Bucketed bucketSummary  `yaml:"bucketed"`
	Layout   layoutSummary  `yaml:"layout"`
	Contours contourSummary `yaml:"contours"`
}

type bucketSummary struct {
	BucketSize   int            `yaml:"bucketSize"`
	Reducer      raster.Reducer `yaml:"reducer"`
	Width        int            `yaml:"width"`
	Height       int            `yaml:"height"`
	MetersPerCol float64        `yaml:"metersPerColumn"`
	MetersPerRow float64        `yaml:"metersPerRow"`
	Stats        raster.Stats   `yaml:"stats"`
}

type layoutSummary struct {
	Mode      layout.Mode `yaml:"mode"`
	Spacing   float64     `yaml:"spacing"`
	Footprint [4]float64  `yaml:"footprint,flow"`
}

type contourSummary struct {
	Interval float64 `yaml:"interval"`
	Style    string  `yaml:"style"`
	Levels   int     `yaml:"levels"`
	Segments int     `yaml:"segments"`
}

func aggregate(path string, p config.Pipeline, styleName string) (*aggregateSummary, error) {
	style, err := contour.ParseStyle(styleName)
	if err != nil {
		return nil, err
	}
	raw, err := raster.LoadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := raster.Aggregate(raw, p.BucketSize, p.Reducer)
	if err != nil {
		return nil, err
	}
	t, err := layout.New(p.Layout, b.Width, b.Height, b.BucketSize)
	if err != nil {
		return nil, err
	}
	t = t.WithPointScale(p.PointScale)

	opts := p.ContourOptions()
	opts.Style = style
	levels, err := contour.Levels(b.Stats, opts.Interval)
	if err != nil {
		return nil, err
	}
	segments, err := contour.Trace(b.Elevation, b.Stats, opts, t)
	if err != nil {
		return nil, err
	}
	fp := t.Footprint()

	return &aggregateSummary{
		File:   path,
		Width:  raw.Width,
		Height: raw.Height,
		Bounds: raw.Bounds,
		Scale:  raw.Scale(),
		Bucketed: bucketSummary{
			BucketSize:   b.BucketSize,
			Reducer:      b.Reducer,
			Width:        b.Width,
			Height:       b.Height,
			MetersPerCol: b.BucketSizeMetersX,
			MetersPerRow: b.BucketSizeMetersY,
			Stats:        b.Stats,
		},
		Layout: layoutSummary{
			Mode:      t.Mode,
			Spacing:   t.Spacing(),
			Footprint: [4]float64{fp.Min.X(), fp.Min.Y(), fp.Max.X(), fp.Max.Y()},
		},
		Contours: contourSummary{
			Interval: opts.Interval,
			Style:    style.String(),
			Levels:   len(levels),
			Segments: len(segments),
		},
	}, nil
}
