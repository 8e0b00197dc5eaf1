package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-switcher/internal/api"
	"github.com/joeblew999/plat-switcher/internal/server"
)

// Options defines all CLI flags and env vars for the switcher server.
// Flags: --host, --port, --data-dir, --config, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG, SERVICE_LOG_LEVEL
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir  string `doc:"Directory for basemaps and switch history" default:".data"`
	Config   string `doc:"Path to switcher.yaml (default <data-dir>/switcher.yaml)"`
	LogLevel string `doc:"Log level (debug, info, warn, error)" default:"info"`
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		ConfigPath: opts.Config,
		LogLevel:   opts.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpSrv *http.Server

		hooks.OnStart(func() {
			srv = newServer(opts)
			log := srv.Logger()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("addr", addr).
				Str("data_dir", opts.DataDir).
				Str("ui", baseURL+"/ui").
				Str("docs", baseURL+"/docs").
				Str("openapi", baseURL+"/openapi.json").
				Msg("plat-switcher server starting")

			httpSrv = &http.Server{Addr: addr, Handler: srv}
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			if httpSrv != nil {
				httpSrv.Close()
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "switcher"
	cli.Root().Short = "Minimap base layer switcher server"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
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

	// layers subcommand: list the configured basemaps in switcher order
	layersCmd := &cobra.Command{
		Use:   "layers",
		Short: "List the basemaps offered by the switcher",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tZOOM\tSOURCE")
			for _, b := range srv.Services().Basemaps.List() {
				source := b.URL
				if len(b.Group) > 0 {
					source = fmt.Sprintf("group of %d", len(b.Group))
				}
				fmt.Fprintf(w, "%s\t%s\t%d-%d\t%s\n", b.ID, b.Name, b.MinZoom, b.MaxZoom, source)
			}
			w.Flush()
		}),
	}
	cli.Root().AddCommand(layersCmd)

	cli.Run()
}
