package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/mcpserver"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/review"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/server"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
	configx "github.com/tanpawarit/Chative-Local-Concierge/pkg/config"
	elasticx "github.com/tanpawarit/Chative-Local-Concierge/pkg/elastic"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP chat API",
		Action: func(c *cli.Context) error {
			ctx, stop := signalContext(c.Context)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error().Err(err).Msg("close resources")
				}
			}()
			a.runSweeper(ctx)

			cfg := configx.MustNew[server.Config]("APP")
			if cfg.Version == "" {
				cfg.Version = version
			}
			opts := []server.Option{server.WithReviews(a.reviews)}
			if a.cache != nil {
				opts = append(opts, server.WithCacheFlusher(a.cache))
			}
			if a.notifier != nil {
				opts = append(opts, server.WithShareNotifier(a.notifier))
			}
			srv, err := server.New(*cfg, a.orchestrator, opts...)
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the concierge from the terminal",
		Action: func(c *cli.Context) error {
			ctx, stop := signalContext(c.Context)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				history        []contractx.Turn
				conversationID string
			)
			in := bufio.NewScanner(os.Stdin)
			fmt.Fprintln(c.App.Writer, "Escribe tu mensaje (Ctrl+D para salir).")
			for {
				fmt.Fprint(c.App.Writer, "> ")
				if !in.Scan() {
					return in.Err()
				}
				message := strings.TrimSpace(in.Text())
				if message == "" {
					continue
				}

				out, err := a.orchestrator.HandleMessage(ctx, contractx.ChatRequest{
					ConversationID: conversationID,
					Message:        message,
					History:        history,
				})
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					fmt.Fprintf(c.App.Writer, "error: %v\n", err)
					continue
				}

				conversationID = out.ConversationID
				history = append(history,
					contractx.UserText(message),
					contractx.Turn{Role: contractx.RoleAssistant, Content: []contractx.ContentBlock{contractx.TextBlock(out.Message)}},
				)
				fmt.Fprintln(c.App.Writer, out.Message)
				if out.SharedRecord != nil {
					fmt.Fprintf(c.App.Writer, "[compartido: %s (%s)]\n", out.SharedRecord.Name, out.SharedRecord.Slug)
				}
			}
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the business tools as an MCP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "http",
				Usage: "Serve streamable HTTP on this address instead of stdio",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signalContext(c.Context)
			defer stop()

			a, err := buildTools(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			a.runSweeper(ctx)

			mcpSrv := mcpserver.New(a.registry, version)
			addr := c.String("http")
			if addr == "" {
				return mcpserver.ServeStdio(ctx, mcpSrv)
			}

			httpSrv := &http.Server{Addr: addr, Handler: mcpserver.HTTPHandler(mcpSrv), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shutdownCtx)
			}()
			log.Info().Str("addr", addr).Msg("mcp http server listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create tables, indexes and the search index, optionally loading seed records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "seed",
				Usage: "JSON file of businesses to load after migrating",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signalContext(c.Context)
			defer stop()

			var seed []store.Business
			if path := c.String("seed"); path != "" {
				mem, err := store.LoadJSONFile(path)
				if err != nil {
					return err
				}
				seed = mem.All()
			}

			cfg := configx.MustNew[AppConfig]("APP")
			a := &app{cfg: *cfg}
			defer a.Close()

			switch strings.ToLower(cfg.StoreBackend) {
			case backendPostgres:
				db, err := a.openPostgres(ctx)
				if err != nil {
					return err
				}
				st, err := store.NewPostgresStore(db)
				if err != nil {
					return err
				}
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				repo, err := review.NewBunRepository(db)
				if err != nil {
					return err
				}
				if err := repo.Migrate(ctx); err != nil {
					return err
				}
				if err := st.Upsert(ctx, seed...); err != nil {
					return err
				}
			case backendElastic:
				esCfg := configx.MustNew[elasticx.Config]("ELASTIC")
				es, err := elasticx.NewClient(*esCfg)
				if err != nil {
					return err
				}
				st, err := store.NewElasticStore(es, esCfg.Index)
				if err != nil {
					return err
				}
				if err := st.EnsureIndex(ctx); err != nil {
					return err
				}
				if err := st.Index(ctx, seed...); err != nil {
					return err
				}
			default:
				return fmt.Errorf("migrate needs APP_STORE_BACKEND=postgres or elastic, got %q", cfg.StoreBackend)
			}

			log.Info().Str("backend", cfg.StoreBackend).Int("seeded", len(seed)).Msg("migration complete")
			return nil
		},
	}
}
