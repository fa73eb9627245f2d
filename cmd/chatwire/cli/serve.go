package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chatwire/chatwire/internal/event"
	"github.com/chatwire/chatwire/internal/messenger"
	"github.com/chatwire/chatwire/internal/server"
	"github.com/chatwire/chatwire/internal/service"
	"github.com/chatwire/chatwire/internal/webhook"
)

const banner = `
      _           _            _
  ___| |__   __ _| |___      _(_)_ __ ___
 / __| '_ \ / _` + "`" + ` | __\ \ /\ / / | '__/ _ \
| (__| | | | (_| | |_ \ V  V /| | | |  __/
 \___|_| |_|\__,_|\__| \_/\_/ |_|_|  \___|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chatwire gateway server",
		Long:  "Start the HTTP server that exposes the messaging, key-management, and webhook APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, loopback echo driver)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Key store (single JSON document under the data dir)
	store, err := openKeyStore()
	if err != nil {
		return fmt.Errorf("init key store: %w", err)
	}
	logger.Info("key store initialized", "path", store.Path())

	// 2. Key lifecycle + auth gate
	keys := service.NewKeyService(store, logger)

	masterKey := viper.GetString("auth.master_key")
	if masterKey == "" {
		if !dev {
			return fmt.Errorf("auth.master_key is not set; set it in chatwire.yaml or CHATWIRE_AUTH_MASTER_KEY")
		}
		// Dev convenience: mint a throwaway master key for this run.
		raw := make([]byte, 24)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("generate dev master key: %w", err)
		}
		masterKey = "cw_master_" + hex.EncodeToString(raw)
		logger.Warn("no master key configured, generated one for this run", "master_key", masterKey)
	}
	auth := service.NewAuthService(masterKey, keys, logger)

	// 3. Event bus, webhook registry, delivery dispatcher
	bus := event.NewBus(logger)
	timeout := time.Duration(viper.GetInt("webhooks.timeout_seconds")) * time.Second
	dispatcher := webhook.NewDispatcher(timeout, logger)
	registry := webhook.NewRegistry(bus, dispatcher, logger)

	// 4. Messaging driver. The protocol driver is an external
	// collaborator; the built-in loopback echoes sends back onto the bus
	// and stands in until one is wired.
	driver := messenger.NewLoopback(bus)
	driver.Echo = dev
	logger.Info("messaging driver attached", "driver", "loopback", "state", driver.SessionState())

	// 5. Bulk send coordinator
	defaultDelay := viper.GetInt("bulk.default_delay_ms")
	if defaultDelay <= 0 {
		defaultDelay = 2000
	}
	maxRecipients := viper.GetInt("bulk.max_recipients")
	if maxRecipients <= 0 {
		maxRecipients = 100
	}
	bulk := service.NewBulkService(driver, time.Duration(defaultDelay)*time.Millisecond, maxRecipients, logger)

	// 6. HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	if hdr := viper.GetString("auth.api_key_header"); hdr != "" {
		srvCfg.APIKeyHeader = hdr
	}
	if v := viper.GetInt("rate_limit.per_minute"); v > 0 {
		srvCfg.RateLimitPerMin = v
	}
	if v := viper.GetInt("rate_limit.per_key_per_minute"); v > 0 {
		srvCfg.SendLimitPerMin = v
	}
	if origins := viper.GetStringSlice("server.cors.origins"); len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}

	srv := server.New(srvCfg, keys, auth, bulk, registry, driver, logger)
	return srv.ListenAndServe()
}
