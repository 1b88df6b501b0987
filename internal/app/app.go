package app

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dilbagh/theunfairwheel/internal/actor"
	"github.com/dilbagh/theunfairwheel/internal/checkpoint"
	"github.com/dilbagh/theunfairwheel/internal/config"
	"github.com/dilbagh/theunfairwheel/internal/identity"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/metadata"
	"github.com/dilbagh/theunfairwheel/internal/realtime"
	"github.com/dilbagh/theunfairwheel/internal/router"
)

// App holds every dependency the service needs for its lifetime.
type App struct {
	log    logger.Logger
	cfg    *config.Config
	routes *router.Handlers

	registry   *actor.Registry
	checkpoint *checkpoint.Store
	redis      *redis.Client

	baseURL atomic.Value // string
}

// New wires the Group Actor registry, the Metadata Store, the Identity
// Resolver, the Realtime Transport, and the Group Router into one App.
func New(log logger.Logger, cfg *config.Config) (*App, error) {
	store, err := checkpoint.New(cfg.CheckpointDBPath)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.MetadataRedisAddr})
	meta := metadata.New(rdb, log, cfg.MetadataRedisPrefix)

	registry := actor.NewRegistry(log, store)
	idResolver := identity.NewResolver(cfg.AuthSecret)
	rt := realtime.New(log, registry)

	a := &App{
		log:        log,
		cfg:        cfg,
		registry:   registry,
		checkpoint: store,
		redis:      rdb,
	}
	a.baseURL.Store("")

	a.routes = router.New(log, registry, idResolver, meta, rt, a.currentBaseURL)
	return a, nil
}

func (a *App) currentBaseURL() string {
	return a.baseURL.Load().(string)
}

// Router returns the configured HTTP router.
func (a *App) Router() chi.Router {
	return a.routes.Router(a.cfg.FrontendOrigin)
}

// Close releases the service's persistent connections.
func (a *App) Close() {
	if err := a.checkpoint.Close(); err != nil {
		a.log.Warn("checkpoint store close failed", "error", err)
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("redis client close failed", "error", err)
	}
}

// Run starts the HTTP server, defaulting the QR join-link base URL to the
// machine's LAN address when none is configured.
func (a *App) Run(addr string) error {
	ip := getPreferredIP(realNetworkProvider{})
	serverURL := fmt.Sprintf("http://%s%s", ip, addr)
	if a.cfg.FrontendOrigin != "" {
		a.baseURL.Store(a.cfg.FrontendOrigin)
	} else {
		a.baseURL.Store(serverURL)
	}

	a.log.Info("server starting", "url", serverURL)
	return http.ListenAndServe(addr, a.Router())
}

// networkInterface wraps net.Interface so getPreferredIP can be tested
// against fakes.
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags           { return r.iface.Flags }
func (r realInterface) Addrs() ([]net.Addr, error) { return r.iface.Addrs() }

// networkProvider is an interface for getting network interfaces (for
// testing).
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access, so QR codes
// generated for one device's screen resolve from another device on the
// same network. Prefers private network addresses (192.168.x.x, 10.x.x.x,
// 172.16-31.x.x); falls back to localhost if none is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range.
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
