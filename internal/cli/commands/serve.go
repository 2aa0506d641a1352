package commands

import (
	"github.com/leapstack-labs/dataviz/internal/cli/config"
	"github.com/leapstack-labs/dataviz/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset registry and expression engine over HTTP",
		Long: `Start an HTTP server exposing dataset loading, comments, expression
validation and evaluation as JSON endpoints. Datasets passed with -d are
loaded before the server starts; more can be added with POST /datasets.

The server stops gracefully on interrupt.`,
		Example: `  dataviz serve -d temp.txt -d flow.txt
  dataviz serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			if c.LoadDatasets(cmd.Context(), paths) > 0 {
				return ErrReported
			}

			srv := server.New(c.Engine, c.Logger)
			c.Renderer.Success("Serving on http://" + c.Cfg.Server.Addr)
			return srv.ListenAndServe(cmd.Context(), c.Cfg.Server.Addr)
		},
	}

	addDatasetsFlag(cmd, &paths)
	cmd.Flags().String("addr", "", "Listen address (default: server.addr, "+config.DefaultServerAddr+")")
	return cmd
}
