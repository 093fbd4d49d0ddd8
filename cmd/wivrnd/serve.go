// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrnd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wivrn-project/wivrnd/internal/config"
	"github.com/wivrn-project/wivrnd/internal/discovery"
	"github.com/wivrn-project/wivrnd/internal/handshake"
	"github.com/wivrn-project/wivrnd/internal/httpapi"
	"github.com/wivrn-project/wivrnd/internal/keystore"
	"github.com/wivrn-project/wivrnd/internal/logging"
	"github.com/wivrn-project/wivrnd/internal/metrics"
	"github.com/wivrn-project/wivrnd/internal/pairing"
	"github.com/wivrn-project/wivrnd/internal/pubsub"
	"github.com/wivrn-project/wivrnd/internal/scheduler"
	"github.com/wivrn-project/wivrnd/internal/session"
	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the wivrnd session and transport daemon",
		RunE:  runServe,
	}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("serve: get config from context: %w", err)
	}
	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("serve: load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log := logging.Setup(cfg.LogLevel)
	log.Info("starting wivrnd", "version", cmd.Root().Annotations["version"], "commit", cmd.Root().Annotations["commit"])

	cfg.DataDir = os.ExpandEnv(cfg.DataDir)
	cfg.Database.Path = os.ExpandEnv(cfg.Database.Path)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("serve: create data dir: %w", err)
	}

	store, err := keystore.Open(cfg.Database.Path, cfg.Metrics.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("serve: open keystore: %w", err)
	}
	defer func() { _ = store.Close() }()

	ps, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("serve: connect pubsub: %w", err)
	}
	defer func() { _ = ps.Close() }()

	registry := session.NewRegistry()
	coordinator := pairing.New()
	m := metrics.NewMetrics()

	advertiser, err := discovery.Start(cfg, log)
	if err != nil {
		return fmt.Errorf("serve: start discovery: %w: %w", ErrDiscoveryUnavailable, err)
	}

	sched, err := scheduler.New(cfg, registry, store, log)
	if err != nil {
		return fmt.Errorf("serve: start scheduler: %w", err)
	}

	router := httpapi.CreateRouter(httpapi.Deps{
		Config:      cfg,
		Registry:    registry,
		Store:       store,
		Pairing:     coordinator,
		PubSub:      ps,
		TypeHash:    wire.TypeHash(),
		BuildCommit: cmd.Root().Annotations["commit"],
	}, log)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.ListenAddr, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Session.ListenAddr, cfg.Session.Port))
	if err != nil {
		return fmt.Errorf("serve: listen: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("control plane HTTP server failed", "error", err)
		}
	}()

	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			log.Error("metrics server failed", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptLoop(runCtx, listener, cfg, store, coordinator, registry, ps, m, log)
	}()

	waitForShutdown(log)
	cancel()

	_ = listener.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if err := sched.Shutdown(); err != nil {
		log.Error("scheduler shutdown failed", "error", err)
	}
	if err := advertiser.Close(shutdownCtx); err != nil {
		log.Error("discovery shutdown failed", "error", err)
	}
	for _, s := range registry.Snapshot() {
		s.Close()
	}

	wg.Wait()
	log.Info("wivrnd stopped")
	return nil
}

func waitForShutdown(log *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig)
}

// acceptLoop takes new reliable-channel connections, runs the server
// side of the handshake over each, and hands the result to a Session.
// Every accepted connection gets its own dedicated, connected datagram
// socket (spec.md section 4.B's stream channel) dialed back to the
// peer's host on the configured session port, which is how this single
// accept loop avoids needing to demultiplex one shared UDP socket by
// source address across sessions.
func acceptLoop(ctx context.Context, listener net.Listener, cfg *config.Config, store *keystore.Store, coordinator *pairing.Coordinator, registry *session.Registry, ps pubsub.PubSub, m *metrics.Metrics, log *slog.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("accept failed", "error", err)
			continue
		}
		go handleConn(ctx, conn, cfg, store, coordinator, registry, ps, m, log)
	}
}

func handleConn(ctx context.Context, conn net.Conn, cfg *config.Config, store *keystore.Store, coordinator *pairing.Coordinator, registry *session.Registry, ps pubsub.PubSub, m *metrics.Metrics, log *slog.Logger) {
	remoteAddr := conn.RemoteAddr()
	handshakeConn := transport.NewReliableConn(conn)

	result, err := handshake.RunServer(handshakeConn, store, []byte(cfg.Session.DeploymentSalt), coordinator.Prompt)
	if err != nil {
		log.Warn("handshake failed", "remote_addr", remoteAddr, "error", err)
		_ = conn.Close()
		return
	}
	if m != nil {
		m.HandshakesCompletedTotal.WithLabelValues(handshakeOutcome(result.Paired)).Inc()
		if result.Paired {
			m.PairingCeremoniesTotal.WithLabelValues("accepted").Inc()
		}
	}

	readCipher, err := wivrncrypto.NewControlCipher(result.Secrets.ControlKey[:], result.Secrets.ControlIVFromHeadset[:])
	if err != nil {
		log.Error("build control read cipher", "error", err)
		_ = conn.Close()
		return
	}
	writeCipher, err := wivrncrypto.NewControlCipher(result.Secrets.ControlKey[:], result.Secrets.ControlIVToHeadset[:])
	if err != nil {
		log.Error("build control write cipher", "error", err)
		_ = conn.Close()
		return
	}
	reliable := transport.NewReliableConn(transport.NewCipherConn(conn, readCipher, writeCipher))

	host, _, err := net.SplitHostPort(remoteAddr.String())
	if err != nil {
		host = remoteAddr.String()
	}
	datagramConn, err := transport.DialDatagramConn(fmt.Sprintf("%s:%d", host, cfg.Session.Port))
	if err != nil {
		log.Error("dial session datagram channel", "remote_addr", remoteAddr, "error", err)
		_ = reliable.Close()
		return
	}

	datagramWriteCipher, err := wivrncrypto.NewDatagramCipher(result.Secrets.StreamKey[:], result.Secrets.StreamIVHeaderToHeadset[:])
	if err != nil {
		log.Error("build stream write cipher", "error", err)
		_ = reliable.Close()
		_ = datagramConn.Close()
		return
	}
	datagramReadCipher, err := wivrncrypto.NewDatagramCipher(result.Secrets.StreamKey[:], result.Secrets.StreamIVHeaderFromHeadset[:])
	if err != nil {
		log.Error("build stream read cipher", "error", err)
		_ = reliable.Close()
		_ = datagramConn.Close()
		return
	}
	secureDatagram := transport.NewSecureDatagramConn(datagramConn, datagramWriteCipher, datagramReadCipher)

	s := session.New(reliable, secureDatagram, remoteAddr, ps, m, log)
	s.ID = uuid.NewString()
	s.DisplayName = result.DisplayName
	registry.Add(s)
	log.Info("session established", "session_id", s.ID, "display_name", s.DisplayName, "remote_addr", remoteAddr, "paired_now", result.Paired)

	err = s.Run(ctx)
	registry.Remove(s.ID)
	_ = secureDatagram.Close()
	log.Info("session ended", "session_id", s.ID, "error", err)
}

func handshakeOutcome(paired bool) string {
	if paired {
		return "paired"
	}
	return "known_peer"
}
