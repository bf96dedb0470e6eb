package authsdk

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// monitorServerStub counts heartbeat and revoke calls.
type monitorServerStub struct {
	mu         sync.Mutex
	heartbeats int
	revokes    int
}

func (s *monitorServerStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.heartbeats++
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.revokes++
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *monitorServerStub) counts() (heartbeats, revokes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats, s.revokes
}

func newMonitoredSession(t *testing.T, stub *monitorServerStub) *Session {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)
	return newSession(client, "lumilearn-web", &TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		Scope:        "profile",
	})
}

func waitForExpiry(t *testing.T, expired <-chan ExpiryReason, want ExpiryReason) {
	t.Helper()

	select {
	case reason := <-expired:
		require.Equal(t, want, reason)
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not expire the session in time")
	}
}

func TestSessionMonitorInactivityExpiry(t *testing.T) {
	t.Parallel()

	stub := &monitorServerStub{}
	session := newMonitoredSession(t, stub)

	expired := make(chan ExpiryReason, 1)
	monitor := NewSessionMonitor(session, SessionMonitorOptions{
		MaxInactivity: 50 * time.Millisecond,
		MaxLifetime:   time.Hour,
		CheckInterval: 10 * time.Millisecond,
		OnExpired:     func(reason ExpiryReason) { expired <- reason },
	})

	monitor.Start()
	defer monitor.Stop()

	waitForExpiry(t, expired, ExpiryReasonInactivity)

	// Expiry revoked the session server-side and dropped local tokens.
	require.Eventually(t, func() bool {
		_, revokes := stub.counts()
		return revokes == 1
	}, time.Second, 10*time.Millisecond)
	require.Empty(t, session.AccessToken())
}

func TestSessionMonitorTouchKeepsAlive(t *testing.T) {
	t.Parallel()

	stub := &monitorServerStub{}
	session := newMonitoredSession(t, stub)

	expired := make(chan ExpiryReason, 1)
	monitor := NewSessionMonitor(session, SessionMonitorOptions{
		MaxInactivity: 80 * time.Millisecond,
		MaxLifetime:   time.Hour,
		CheckInterval: 10 * time.Millisecond,
		OnExpired:     func(reason ExpiryReason) { expired <- reason },
	})

	monitor.Start()
	defer monitor.Stop()

	// Keep touching for longer than the inactivity window.
	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		monitor.Touch()
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case reason := <-expired:
		t.Fatalf("session expired (%s) despite activity", reason)
	default:
	}

	// Once activity stops, the inactivity limit applies again.
	waitForExpiry(t, expired, ExpiryReasonInactivity)
}

func TestSessionMonitorAbsoluteExpiry(t *testing.T) {
	t.Parallel()

	stub := &monitorServerStub{}
	session := newMonitoredSession(t, stub)

	expired := make(chan ExpiryReason, 1)
	monitor := NewSessionMonitor(session, SessionMonitorOptions{
		MaxInactivity: time.Hour,
		MaxLifetime:   60 * time.Millisecond,
		CheckInterval: 10 * time.Millisecond,
		OnExpired:     func(reason ExpiryReason) { expired <- reason },
	})

	monitor.Start()
	defer monitor.Stop()

	// Activity cannot extend the absolute lifetime.
	go func() {
		for i := 0; i < 20; i++ {
			monitor.Touch()
			time.Sleep(10 * time.Millisecond)
		}
	}()

	waitForExpiry(t, expired, ExpiryReasonAbsolute)
}

func TestSessionMonitorHeartbeatRateLimit(t *testing.T) {
	t.Parallel()

	stub := &monitorServerStub{}
	session := newMonitoredSession(t, stub)

	monitor := NewSessionMonitor(session, SessionMonitorOptions{
		MaxInactivity:     time.Hour,
		MaxLifetime:       time.Hour,
		CheckInterval:     time.Hour,
		HeartbeatInterval: 40 * time.Millisecond,
	})

	monitor.Start()
	defer monitor.Stop()

	// A burst of touches inside one interval sends at most one heartbeat.
	// Touch never heartbeats immediately after Start, so wait out the
	// first interval.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 10; i++ {
		monitor.Touch()
	}

	require.Eventually(t, func() bool {
		heartbeats, _ := stub.counts()
		return heartbeats == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	monitor.Touch()

	require.Eventually(t, func() bool {
		heartbeats, _ := stub.counts()
		return heartbeats == 2
	}, time.Second, 10*time.Millisecond)
}

func TestSessionMonitorStopDoesNotExpire(t *testing.T) {
	t.Parallel()

	stub := &monitorServerStub{}
	session := newMonitoredSession(t, stub)

	var fired bool
	monitor := NewSessionMonitor(session, SessionMonitorOptions{
		MaxInactivity: time.Hour,
		MaxLifetime:   time.Hour,
		CheckInterval: 10 * time.Millisecond,
		OnExpired:     func(ExpiryReason) { fired = true },
	})

	monitor.Start()
	monitor.Stop()

	// Stop is idempotent.
	monitor.Stop()

	require.False(t, fired)
	require.NotEmpty(t, session.AccessToken())
	_, revokes := stub.counts()
	require.Zero(t, revokes)
}
