// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package discovery advertises wivrnd's session endpoint over mDNS so a
// headset on the same network segment can find it without manual IP
// entry (spec.md section 6), and persists the per-install cookie used
// to tell repeat connections from a freshly reinstalled server.
package discovery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/wivrn-project/wivrnd/internal/config"
)

// cookieFileName is the file under Config.DataDir holding the
// per-install identity used in the advertised service name.
const cookieFileName = "cookie"

// cookieSize is the byte length of the random cookie before hex encoding.
const cookieSize = 16

// queryInterval matches pion/mdns/v2's default responder cadence.
const queryInterval = 5 * time.Second

// Advertiser wraps a pion/mdns/v2 responder bound to this host's
// session service name. pion/mdns/v2 answers A/AAAA queries for a set
// of local names rather than full DNS-SD SRV/TXT records, so the
// protocol type-hash and build version that spec.md section 6 asks to
// carry in TXT records are instead exposed through the HTTP API's
// /api/v1/status endpoint; the mDNS name itself still lets a headset
// discover the host without a TXT-capable resolver.
type Advertiser struct {
	conn   *mdns.Conn
	log    *slog.Logger
	cookie string
}

// LoadOrCreateCookie reads the per-install cookie from dataDir, creating
// one if absent.
func LoadOrCreateCookie(dataDir string) (string, error) {
	path := filepath.Join(dataDir, cookieFileName)
	raw, err := os.ReadFile(path)
	if err == nil {
		return string(raw), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("discovery: read cookie: %w", err)
	}

	buf := make([]byte, cookieSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("discovery: generate cookie: %w", err)
	}
	cookie := hex.EncodeToString(buf)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("discovery: create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(cookie), 0o600); err != nil {
		return "", fmt.Errorf("discovery: write cookie: %w", err)
	}
	return cookie, nil
}

// serviceHostname builds the mDNS local name this instance answers
// for, folding the server name and cookie together so distinct
// installs on the same segment don't collide.
func serviceHostname(serverName, cookie string) string {
	return fmt.Sprintf("%s-%s.local.", serverName, cookie[:8])
}

// Start binds multicast listeners and begins responding to queries for
// this instance's service hostname. Returns nil, nil when discovery is
// disabled in configuration.
func Start(cfg *config.Config, log *slog.Logger) (*Advertiser, error) {
	if !cfg.Discovery.Enabled {
		return nil, nil
	}

	cookie, err := LoadOrCreateCookie(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve ipv4 multicast address: %w", err)
	}
	sock4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		return nil, fmt.Errorf("discovery: open ipv4 multicast socket: %w", err)
	}
	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		_ = sock4.Close()
		return nil, fmt.Errorf("discovery: resolve ipv6 multicast address: %w", err)
	}
	sock6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		_ = sock4.Close()
		return nil, fmt.Errorf("discovery: open ipv6 multicast socket: %w", err)
	}

	hostname := serviceHostname(cfg.Discovery.ServerName, cookie)
	conn, err := mdns.Server(ipv4.NewPacketConn(sock4), ipv6.NewPacketConn(sock6), &mdns.Config{
		QueryInterval: queryInterval,
		LocalNames:    []string{hostname},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: start responder: %w", err)
	}

	log.Info("mDNS discovery started", "hostname", hostname)
	return &Advertiser{conn: conn, log: log, cookie: cookie}, nil
}

// Cookie returns this install's persisted identity string.
func (a *Advertiser) Cookie() string {
	if a == nil {
		return ""
	}
	return a.cookie
}

// Close stops responding to mDNS queries.
func (a *Advertiser) Close(_ context.Context) error {
	if a == nil || a.conn == nil {
		return nil
	}
	if err := a.conn.Close(); err != nil {
		return fmt.Errorf("discovery: close responder: %w", err)
	}
	return nil
}
