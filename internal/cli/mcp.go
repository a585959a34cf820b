package cli

import (
	"github.com/spf13/cobra"

	mcpserver "scrapbook/internal/mcp"
	"scrapbook/internal/service"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol on stdin/stdout",
		Long: `Expose albums, pages and blocks to an AI agent. Point the agent's MCP
client at "scrapbook mcp". Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			st, err := openStack(ctx, opts.cfg, service.LogEmitter{Logger: logger.WithPrefix("events")})
			if err != nil {
				return err
			}
			defer st.Close()

			srv := mcpserver.New(mcpserver.Deps{
				Albums: st.albums,
				Pages:  st.pages,
				Logger: logger,
			})
			return srv.ServeStdio()
		},
	}
}
