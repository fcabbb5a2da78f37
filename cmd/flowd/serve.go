package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/flowdhq/flowd"
	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/adapters/file"
	"github.com/flowdhq/flowd/pkg/adapters/httpapi"
	"github.com/flowdhq/flowd/pkg/adapters/memory"
	redisAdapter "github.com/flowdhq/flowd/pkg/adapters/redis"
	"github.com/flowdhq/flowd/pkg/observability"
	"github.com/flowdhq/flowd/pkg/ports"
	"github.com/flowdhq/flowd/pkg/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the flowd engine in server mode, exposing process instantiation, response submission and trigger invocation over a JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for process storage and locking (empty: in-memory)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
}

func runServe(cmd *cobra.Command) error {
	scenarioDir, _ := cmd.Flags().GetString("scenarios")
	schemaDir, _ := cmd.Flags().GetString("schemas")
	port, _ := cmd.Flags().GetString("port")
	redisAddr, _ := cmd.Flags().GetString("redis")
	redisPassword, _ := cmd.Flags().GetString("redis-password")
	redisDB, _ := cmd.Flags().GetInt("redis-db")

	logger := logging.New(logLevel(cmd))

	signer, err := memory.NewSigner()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	options := []flowd.Option{
		flowd.WithLogger(logger),
		flowd.WithMetrics(observability.NewMetrics(registry)),
		flowd.WithChainService(memory.NewChainService()),
		flowd.WithSigner(signer),
	}
	if schemaDir != "" {
		options = append(options, flowd.WithSchemaRepository(
			schema.NewRepository(file.NewSchemaSource(schemaDir), schema.WithLogger(logger)),
		))
	}

	var store ports.ProcessStore
	if redisAddr != "" {
		redisStore := redisAdapter.New(redisAddr, redisPassword, redisDB)
		store = redisStore
		options = append(options, flowd.WithLocker(
			redisAdapter.NewLocker(redisStore.Client()),
		))
		logger.Info("using redis process store", "addr", redisAddr)
	} else {
		store = memory.NewStore()
		logger.Info("using in-memory process store")
	}

	engine := flowd.New(file.NewScenarioStore(scenarioDir), store, options...)
	handler := httpapi.NewHandler(engine, registry, httpapi.WithLogger(logger))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("Starting flowd server on %s\n", srv.Addr)
		fmt.Printf("Serving scenarios from: %s\n", scenarioDir)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("killing server: %w", err)
			}
		}
		fmt.Println("flowd server stopped gracefully")
	}
	return nil
}
