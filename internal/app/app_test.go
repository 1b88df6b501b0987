package app

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/dilbagh/theunfairwheel/internal/config"
	"github.com/dilbagh/theunfairwheel/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return &config.Config{
		ListenAddr:          ":0",
		FrontendOrigin:      "http://localhost:5173",
		AuthSecret:          "test-secret",
		CheckpointDBPath:    ":memory:",
		MetadataRedisAddr:   mr.Addr(),
		MetadataRedisPrefix: "test:",
		LogLevel:            "info",
	}
}

func createTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(logger.New(), testConfig(t))
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNew_InitializesApp(t *testing.T) {
	a := createTestApp(t)

	if a.routes == nil {
		t.Error("expected routes to be initialized")
	}
	if a.registry == nil {
		t.Error("expected registry to be initialized")
	}
}

func TestApp_Router_ReturnsRouter(t *testing.T) {
	a := createTestApp(t)

	router := a.Router()
	if router == nil {
		t.Fatal("expected router to be returned")
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	a := createTestApp(t)
	server := httptest.NewServer(a.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for /healthz, got %d", resp.StatusCode)
	}
}

func TestApp_Close_IsIdempotentWithDefer(t *testing.T) {
	a := createTestApp(t)
	a.Close()
}

func TestGetPreferredIP_ReturnsValidIP(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})

	if ip == "" {
		t.Error("expected non-empty IP")
	}
	if ip != "localhost" {
		if parsed := net.ParseIP(ip); parsed == nil {
			t.Errorf("expected valid IP, got: %s", ip)
		}
	}
}

func TestIsPrivate172(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.15.0.1", false},
		{"172.32.0.1", false},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if result := isPrivate172(ip); result != tt.expected {
				t.Errorf("isPrivate172(%s) = %v, want %v", tt.ip, result, tt.expected)
			}
		})
	}
}

func TestIsPrivate172_NilIP(t *testing.T) {
	if result := isPrivate172(nil); result != false {
		t.Errorf("isPrivate172(nil) = %v, want false", result)
	}
}

func TestIsPrivate172_IPv6(t *testing.T) {
	if result := isPrivate172(net.ParseIP("::1")); result != false {
		t.Errorf("isPrivate172(::1) = %v, want false", result)
	}
	if result := isPrivate172(net.ParseIP("fe80::1")); result != false {
		t.Errorf("isPrivate172(fe80::1) = %v, want false", result)
	}
}

// mockInterface implements networkInterface for testing.
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags { return m.flags }

func (m mockInterface) Addrs() ([]net.Addr, error) { return m.addrs, m.err }

// mockNetworkProvider implements networkProvider for testing.
type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func TestGetPreferredIP_NetworkError(t *testing.T) {
	provider := mockNetworkProvider{err: net.ErrClosed}

	if ip := getPreferredIP(provider); ip != "localhost" {
		t.Errorf("expected 'localhost' on error, got: %s", ip)
	}
}

func TestGetPreferredIP_InterfaceAddrsError(t *testing.T) {
	iface := mockInterface{flags: net.FlagUp, err: net.ErrClosed}
	provider := mockNetworkProvider{interfaces: []networkInterface{iface}}

	if ip := getPreferredIP(provider); ip != "localhost" {
		t.Errorf("expected 'localhost' when Addrs() fails, got: %s", ip)
	}
}

func TestGetPreferredIP_WithIPAddr(t *testing.T) {
	ipAddr := &net.IPAddr{IP: net.ParseIP("192.168.1.100")}
	iface := mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipAddr}}
	provider := mockNetworkProvider{interfaces: []networkInterface{iface}}

	if ip := getPreferredIP(provider); ip != "192.168.1.100" {
		t.Errorf("expected '192.168.1.100', got: %s", ip)
	}
}

func TestGetPreferredIP_PublicIPFallback(t *testing.T) {
	publicIP := &net.IPNet{IP: net.ParseIP("8.8.8.8"), Mask: net.CIDRMask(24, 32)}
	iface := mockInterface{flags: net.FlagUp, addrs: []net.Addr{publicIP}}
	provider := mockNetworkProvider{interfaces: []networkInterface{iface}}

	if ip := getPreferredIP(provider); ip != "8.8.8.8" {
		t.Errorf("expected '8.8.8.8' (public IP fallback), got: %s", ip)
	}
}

func TestGetPreferredIP_LoopbackIP(t *testing.T) {
	loopbackIP := &net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)}
	validIP := &net.IPNet{IP: net.ParseIP("192.168.1.50"), Mask: net.CIDRMask(24, 32)}
	iface := mockInterface{flags: net.FlagUp, addrs: []net.Addr{loopbackIP, validIP}}
	provider := mockNetworkProvider{interfaces: []networkInterface{iface}}

	if ip := getPreferredIP(provider); ip != "192.168.1.50" {
		t.Errorf("expected '192.168.1.50' (skipping loopback), got: %s", ip)
	}
}

func TestRealNetworkProvider_Interfaces(t *testing.T) {
	provider := realNetworkProvider{}
	ifaces, err := provider.Interfaces()
	if err != nil {
		t.Logf("net.Interfaces() failed (system-dependent): %v", err)
		return
	}

	for i, iface := range ifaces {
		_ = iface.Flags()
		if _, err := iface.Addrs(); err != nil {
			t.Logf("interface %d Addrs() failed: %v", i, err)
		}
	}
}
