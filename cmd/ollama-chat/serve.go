package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/handlers"
	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/llm/ollama"
	"github.com/d4l-data4life/ollama-chat/pkg/metrics"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/server"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open all stored chats and serve the local API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve contains the main service logic - it must finish on ctx cancelation!
func serve(ctx context.Context) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ollamaCfg := config.GetOllamaConfig()
	reg := registry.New(st,
		ollama.NewClient(ollama.Config{
			Timeout:       ollamaCfg.RequestTimeout,
			ModelsTimeout: ollamaCfg.ModelsTimeout,
		}),
		llm.NewEndpoint(ollamaCfg.BaseURL),
		registry.Config{ModelsCacheTTL: ollamaCfg.ModelsCacheTTL},
	)
	if err := reg.Bootstrap(ctx); err != nil {
		return err
	}

	corsHosts := strings.Fields(viper.GetString("CORS_HOSTS"))
	srv := server.NewServer(config.Name,
		cors.New(config.CorsConfig(corsHosts)),
		viper.GetInt("HTTP_MAX_PARALLEL_REQUESTS"),
		config.GetHTTPRequestTimeout(),
	)
	server.SetupRoutes(srv, st, handlers.Dependencies{
		Registry:      reg,
		Transcriber:   transcribe.FromConfig(config.GetTranscribeConfig()),
		CorsHosts:     corsHosts,
		ServiceSecret: viper.GetString("SERVICE_SECRET"),
	})
	metrics.AddBuildInfoMetric()
	metrics.AddChatMetrics()

	addr := net.JoinHostPort(viper.GetString("HOST"), viper.GetString("PORT"))
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	eg.Go(func() error {
		<-ctx.Done()
		reg.CloseAll()
		logging.LogInfof("All chat views closed")
		return nil
	})
	return eg.Wait()
}
