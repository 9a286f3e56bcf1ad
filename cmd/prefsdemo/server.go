package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/simpleprefs/internal/api"
	"github.com/kalambet/simpleprefs/internal/prefs"
	"github.com/kalambet/simpleprefs/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP preference inspector (foreground)",
	Long: `Serve the HTTP preference inspector on 127.0.0.1.

Requests other than /health need "Authorization: Bearer <token>". The token
comes from PREFS_API_TOKEN; when unset a random one is generated and printed.
With the file backend, edits made to the preferences file by other
processes are picked up while serving.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the preferences as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "prefsdemo version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token := cfg.Server.Token
	if token == "" {
		token = uuid.New().String()
		printStatus("API token", "%s", token)
	}

	p, closeFn, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(api.Deps{Prefs: p, Token: token}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "prefsdemo listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	watchFile(gCtx, g, p)

	return g.Wait()
}

func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, closeFn, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	gCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Prefs: p, Version: version})
	stdioSrv := server.NewStdioServer(mcpSrv)
	g.Go(func() error {
		// Stdin closing ends the session and stops the watcher with it.
		defer cancel()
		if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	})
	slog.Info("MCP server started (stdio transport)")
	watchFile(gCtx, g, p)

	return g.Wait()
}

// watchFile reloads the store when another process rewrites its file.
// Other backends have nothing to watch.
func watchFile(ctx context.Context, g *errgroup.Group, p *prefs.Prefs) {
	fb, ok := p.Store().Backend().(*store.FileBackend)
	if !ok {
		return
	}
	slog.Info("watching preferences file", "path", fb.Path())
	g.Go(func() error {
		return fb.Watch(ctx, p.Store(), slog.Default())
	})
}
