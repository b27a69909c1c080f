package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-ixmaps/internal/config"
	"github.com/joeblew999/plat-ixmaps/internal/logging"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/server"
)

// Options defines all CLI flags and env vars for the ixmaps server.
// Flags: --host, --port, --data-dir, --engine, --duckdb, --log-level, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_ENGINE, ...
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir  string `doc:"Directory for themes and source data" default:".data"`
	Engine   string `doc:"Map engine source: manifest path, URL or builtin:<engine>"`
	DuckDB   bool   `doc:"Size query layers with DuckDB" default:"false"`
	LogLevel string `doc:"Log level (debug, info, warn, error)" default:"info"`
	Config   string `doc:"Optional TOML config file; flags and env vars win over it"`
}

func newServer(opts *Options, defaults mapbuilder.Options) *server.Server {
	logger := log.Logger
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		Engine:      opts.Engine,
		DuckDB:      opts.DuckDB,
		MapDefaults: defaults,
		Preload:     true,
		Logger:      &logger,
	})
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			defaults, err := resolve(opts, flagSet(cli.Root()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			logging.Init("ixmaps", opts.LogLevel)
			srv := newServer(opts, defaults)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-ixmaps API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Engine:  %s\n", srv.Runtime().Source())
			fmt.Println()
			fmt.Printf("  Events:  %s/api/v1/events\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatal().Err(err).Msg("server error")
			}
		})
	})

	cli.Root().Use = "ixmaps"
	cli.Root().Short = "Embedded interactive maps with queued map calls and layer themes"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := server.New(server.Config{
				Host:    opts.Host,
				Port:    fmt.Sprintf("%d", opts.Port),
				DataDir: opts.DataDir,
				Engine:  opts.Engine,
			})
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
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

	cli.Root().AddCommand(newLayerCmd())

	cli.Run()
}

// resolve layers the config file under flags and env vars and returns the
// default map options from the file.
func resolve(opts *Options, set func(name string) bool) (mapbuilder.Options, error) {
	if opts.Config == "" {
		return nil, nil
	}
	file, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	if file.Host != "" && !set("host") {
		opts.Host = file.Host
	}
	if file.Port != 0 && !set("port") {
		opts.Port = file.Port
	}
	if file.DataDir != "" && !set("data-dir") {
		opts.DataDir = file.DataDir
	}
	if file.Engine != "" && !set("engine") {
		opts.Engine = file.Engine
	}
	if file.DuckDB && !set("duckdb") {
		opts.DuckDB = true
	}
	if file.LogLevel != "" && !set("log-level") {
		opts.LogLevel = file.LogLevel
	}
	return file.Map, nil
}
