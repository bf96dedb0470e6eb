package authsdk

import (
	"context"
	"sync"
	"time"
)

// ExpiryReason says why a monitored session ended.
type ExpiryReason string

const (
	// ExpiryReasonInactivity fires when no Touch happened within the
	// inactivity window.
	ExpiryReasonInactivity ExpiryReason = "inactivity"

	// ExpiryReasonAbsolute fires when the session hits its maximum
	// lifetime regardless of activity.
	ExpiryReasonAbsolute ExpiryReason = "absolute"

	// ExpiryReasonRefreshFailed fires when the server rejects a token
	// refresh, which usually means the session was revoked remotely.
	ExpiryReasonRefreshFailed ExpiryReason = "refresh_failed"
)

// SessionMonitor keeps a session alive while the user is active and
// ends it when they are not. It runs two jobs on one ticker: a watchdog
// that enforces the inactivity and absolute lifetime limits, and a
// refresher that rotates the access token before it expires.
//
// Call Touch on user activity. When the session ends for any reason the
// monitor revokes it, fires OnExpired once and stops.
type SessionMonitor struct {
	session *Session

	// MaxInactivity ends the session after this long without a Touch.
	maxInactivity time.Duration

	// MaxLifetime ends the session this long after Start, active or not.
	maxLifetime time.Duration

	// OnExpired is called exactly once, from the monitor goroutine,
	// after the session has been revoked. May be nil.
	OnExpired func(reason ExpiryReason)

	// Heartbeats tell the server about activity so its inactivity
	// window slides with the client's. At most one per interval.
	heartbeatInterval time.Duration

	checkInterval time.Duration

	mu            sync.Mutex
	lastActivity  time.Time
	lastHeartbeat time.Time
	startedAt     time.Time
	running       bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// SessionMonitorOptions configures a SessionMonitor. Zero fields get
// defaults suited to a web client: 30 minute inactivity, 12 hour
// absolute lifetime, 15 second checks, 5 minute heartbeats.
type SessionMonitorOptions struct {
	MaxInactivity     time.Duration
	MaxLifetime       time.Duration
	CheckInterval     time.Duration
	HeartbeatInterval time.Duration
	OnExpired         func(reason ExpiryReason)
}

// NewSessionMonitor creates a monitor for the session. Call Start to
// begin enforcement.
func NewSessionMonitor(session *Session, opts SessionMonitorOptions) *SessionMonitor {
	if opts.MaxInactivity <= 0 {
		opts.MaxInactivity = 30 * time.Minute
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = 12 * time.Hour
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 15 * time.Second
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 5 * time.Minute
	}

	return &SessionMonitor{
		session:           session,
		maxInactivity:     opts.MaxInactivity,
		maxLifetime:       opts.MaxLifetime,
		checkInterval:     opts.CheckInterval,
		heartbeatInterval: opts.HeartbeatInterval,
		OnExpired:         opts.OnExpired,
	}
}

// Start begins watching the session. No-op if already running.
func (m *SessionMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	m.running = true
	m.startedAt = now
	m.lastActivity = now
	m.lastHeartbeat = now
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.run()
}

// Stop halts the monitor without ending the session. Blocks until the
// monitor goroutine exits. Safe to call when not running.
func (m *SessionMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	<-done
}

// Touch records user activity, resetting the inactivity window. Cheap
// enough to call on every request or UI event; server heartbeats are
// rate limited internally.
func (m *SessionMonitor) Touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	heartbeatDue := time.Since(m.lastHeartbeat) >= m.heartbeatInterval
	if heartbeatDue {
		m.lastHeartbeat = time.Now()
	}
	m.mu.Unlock()

	if heartbeatDue {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = m.session.Heartbeat(ctx)
		}()
	}
}

// IdleFor returns how long since the last Touch.
func (m *SessionMonitor) IdleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

func (m *SessionMonitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if reason, expired := m.check(); expired {
				m.expire(reason)
				return
			}
		}
	}
}

// check enforces both session limits and refreshes the token when it is
// close to expiry.
func (m *SessionMonitor) check() (ExpiryReason, bool) {
	m.mu.Lock()
	idle := time.Since(m.lastActivity)
	age := time.Since(m.startedAt)
	m.mu.Unlock()

	if age >= m.maxLifetime {
		return ExpiryReasonAbsolute, true
	}
	if idle >= m.maxInactivity {
		return ExpiryReasonInactivity, true
	}

	// Refresh ahead of expiry so in-flight requests never race the
	// token's death. ExpiresAt already has the safety buffer applied.
	if !time.Now().Before(m.session.ExpiresAt()) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := m.session.ForceRefresh(ctx)
		cancel()
		if err != nil {
			return ExpiryReasonRefreshFailed, true
		}
	}

	return "", false
}

// expire revokes the session and notifies the caller. The revoke is
// best effort: the server's own expiry sweeps will catch anything a
// failed call leaves behind.
func (m *SessionMonitor) expire(reason ExpiryReason) {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	if reason != ExpiryReasonRefreshFailed {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = m.session.Logout(ctx)
		cancel()
	}

	if m.OnExpired != nil {
		m.OnExpired(reason)
	}
}
