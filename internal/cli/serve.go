package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/server"
)

func newServeCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and import tools over MCP",
		Long: `Serve the catalog and import tools over MCP, on stdio or streamable HTTP.
Statistics from match_facts accumulate until reset_import.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st)
		},
	}

	cmd.Flags().String("transport", "stdio", "transport mode: stdio or http")
	cmd.Flags().String("port", "8081", "HTTP port (only used with --transport http)")
	bindFlags(st.v, cmd.Flags(), map[string]string{
		"server.transport": "transport",
		"server.port":      "port",
	})
	return cmd
}

func runServe(ctx context.Context, st *state) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := st.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	sess, err := st.newSession(b)
	if err != nil {
		return err
	}
	srv := server.New(server.Deps{Catalog: b.catalog, Session: sess, Logger: st.log})

	switch st.cfg.Server.Transport {
	case "http":
		addr := ":" + st.cfg.Server.Port
		httpSrv := server.NewHTTPServer(addr, server.HTTPHandler(srv, st.cfg.Server.BearerToken, st.log))

		errCh := make(chan error, 1)
		go func() {
			st.log.Info("Fact importer MCP server listening", "addr", addr, "auth", st.cfg.Server.BearerToken != "")
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		st.log.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	default:
		st.log.Info("Fact importer MCP server starting (stdio)")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
