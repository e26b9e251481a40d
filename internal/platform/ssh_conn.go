package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
)

// ConnectionState is the state of a remote host's SSH transport.
type ConnectionState int32

const (
	ConnectionStateDisconnected ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	// ConnectionStateReconnecting means a command found the transport dead
	// and is redialing.
	ConnectionStateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ConnectionStats describes the SSH transport of a remote platform.
type ConnectionStats struct {
	State          ConnectionState
	ConnectedSince time.Time
	// Dials counts successful dials, the initial one included.
	Dials        int64
	DialFailures int64

	LastError     error
	LastErrorTime time.Time

	SessionsCreated  int64
	KeepalivesSent   int64
	KeepalivesFailed int64
}

var (
	errConnClosed       = errors.New("ssh connection closed")
	errKeepaliveTimeout = errors.New("keepalive timeout")
)

// dialFunc opens an SSH client. dialSSH outside of tests.
type dialFunc func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)

// dialSSH is ssh.Dial with ctx bounding both the TCP dial and the
// handshake.
func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok && cfg.Timeout > 0 {
		deadline = time.Now().Add(cfg.Timeout)
	}
	if !deadline.IsZero() {
		_ = nc.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { nc.Close() })
	defer stop()

	conn, chans, reqs, err := ssh.NewClientConn(nc, addr, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	_ = nc.SetDeadline(time.Time{})
	return ssh.NewClient(conn, chans, reqs), nil
}

// connPolicy tunes keepalive and redial behavior.
type connPolicy struct {
	// keepAlive is the probe interval. Zero disables probing.
	keepAlive        time.Duration
	keepAliveTimeout time.Duration
	// attempts bounds the dials of one redial.
	attempts   int
	backoffMin time.Duration
	backoffMax time.Duration
}

func defaultConnPolicy(reconnectInterval time.Duration) connPolicy {
	return connPolicy{
		keepAlive:        30 * time.Second,
		keepAliveTimeout: 15 * time.Second,
		attempts:         3,
		backoffMin:       max(reconnectInterval/30, 100*time.Millisecond),
		backoffMax:       reconnectInterval,
	}
}

// sshConn owns one SSH client. A keepalive probe drops a dead transport;
// the next session redials it with backoff. Nothing reconnects in the
// background, so an idle host costs one goroutine.
type sshConn struct {
	addr   string
	cfg    *ssh.ClientConfig
	policy connPolicy
	log    *slog.Logger
	dial   dialFunc

	// ctx lives until close; commands derive their deadlines from it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// redialMu serializes redials so concurrent commands share one.
	redialMu sync.Mutex

	mu             sync.Mutex
	client         *ssh.Client
	connectedSince time.Time
	lastErr        error
	lastErrTime    time.Time

	state            atomic.Int32
	dials            atomic.Int64
	dialFailures     atomic.Int64
	sessions         atomic.Int64
	keepalivesSent   atomic.Int64
	keepalivesFailed atomic.Int64
}

// newSSHConn prepares a connection whose lifetime is bound to parent.
func newSSHConn(parent context.Context, addr string, cfg *ssh.ClientConfig, policy connPolicy, log *slog.Logger) *sshConn {
	ctx, cancel := context.WithCancel(parent)
	return &sshConn{
		addr:   addr,
		cfg:    cfg,
		policy: policy,
		log:    log.With("address", addr),
		dial:   dialSSH,
		ctx:    ctx,
		cancel: cancel,
	}
}

// connect makes the first dial without retries so a wrong host or
// credential fails fast.
func (c *sshConn) connect(ctx context.Context) error {
	c.setState(ConnectionStateConnecting)
	client, err := c.dialOnce(ctx)
	if err != nil {
		c.setState(ConnectionStateDisconnected)
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	c.install(client)

	if c.policy.keepAlive > 0 {
		c.wg.Add(1)
		go c.keepaliveLoop()
	}
	return nil
}

func (c *sshConn) dialOnce(ctx context.Context) (*ssh.Client, error) {
	client, err := c.dial(ctx, c.addr, c.cfg)
	if err != nil {
		c.dialFailures.Add(1)
		c.recordError(err)
		return nil, err
	}
	c.dials.Add(1)
	return client, nil
}

func (c *sshConn) install(client *ssh.Client) {
	c.mu.Lock()
	c.client = client
	c.connectedSince = time.Now()
	c.mu.Unlock()
	c.setState(ConnectionStateConnected)
}

func (c *sshConn) live() *ssh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// drop closes client if it is still the current one, so callers racing on
// the same failure close it once.
func (c *sshConn) drop(client *ssh.Client, cause error) {
	c.recordError(cause)
	c.mu.Lock()
	current := c.client == client
	if current {
		c.client = nil
	}
	c.mu.Unlock()

	if current {
		_ = client.Close()
		c.setState(ConnectionStateDisconnected)
		c.log.Debug("ssh transport dropped", "error", cause)
	}
}

// current returns the live client, redialing when it was dropped.
func (c *sshConn) current(ctx context.Context) (*ssh.Client, error) {
	if client := c.live(); client != nil {
		return client, nil
	}

	c.redialMu.Lock()
	defer c.redialMu.Unlock()
	if client := c.live(); client != nil {
		return client, nil
	}
	if c.ctx.Err() != nil {
		return nil, errConnClosed
	}

	c.setState(ConnectionStateReconnecting)
	var err error
	for attempt := 1; attempt <= c.policy.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				c.setState(ConnectionStateDisconnected)
				return nil, ctx.Err()
			case <-time.After(backoffDelay(attempt-1, c.policy.backoffMin, c.policy.backoffMax)):
			}
		}

		var client *ssh.Client
		client, err = c.dialOnce(ctx)
		if err != nil {
			c.log.Warn("ssh redial failed", "attempt", attempt, "error", err)
			continue
		}
		if c.ctx.Err() != nil {
			client.Close()
			return nil, errConnClosed
		}
		c.install(client)
		c.log.Info("ssh reconnected", "attempts", attempt)
		return client, nil
	}
	c.setState(ConnectionStateDisconnected)
	return nil, fmt.Errorf("reconnecting to %s: %w", c.addr, err)
}

// session opens a session. Any failure other than the server refusing the
// channel means the transport is gone; it is dropped and redialed once.
func (c *sshConn) session(ctx context.Context) (*ssh.Session, error) {
	for retried := false; ; retried = true {
		client, err := c.current(ctx)
		if err != nil {
			return nil, err
		}
		s, err := client.NewSession()
		if err == nil {
			c.sessions.Add(1)
			return s, nil
		}
		var rejected *ssh.OpenChannelError
		if retried || errors.As(err, &rejected) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		c.drop(client, err)
	}
}

func (c *sshConn) keepaliveLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.policy.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.probe(); err != nil {
				c.log.Warn("ssh keepalive failed", "error", err)
			}
		}
	}
}

// probe sends one keepalive request on the live client. A rejected request
// still proves the transport works; only a transport error or a timeout
// drops the client.
func (c *sshConn) probe() error {
	client := c.live()
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.policy.keepAliveTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		if c.ctx.Err() != nil {
			return nil
		}
		err = errKeepaliveTimeout
	}
	if err != nil {
		c.keepalivesFailed.Add(1)
		c.drop(client, err)
		return err
	}
	c.keepalivesSent.Add(1)
	return nil
}

// close stops the keepalive loop and closes the client. It is idempotent.
func (c *sshConn) close() error {
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	c.setState(ConnectionStateDisconnected)
	if client != nil {
		return client.Close()
	}
	return nil
}

func (c *sshConn) setState(to ConnectionState) {
	if from := ConnectionState(c.state.Swap(int32(to))); from != to {
		c.log.Debug("ssh connection state", "from", from.String(), "to", to.String())
	}
}

func (c *sshConn) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.lastErrTime = time.Now()
	c.mu.Unlock()
}

func (c *sshConn) stats() ConnectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionStats{
		State:            ConnectionState(c.state.Load()),
		ConnectedSince:   c.connectedSince,
		Dials:            c.dials.Load(),
		DialFailures:     c.dialFailures.Load(),
		LastError:        c.lastErr,
		LastErrorTime:    c.lastErrTime,
		SessionsCreated:  c.sessions.Load(),
		KeepalivesSent:   c.keepalivesSent.Load(),
		KeepalivesFailed: c.keepalivesFailed.Load(),
	}
}

// backoffDelay returns lo doubled retry-1 times, capped at hi.
func backoffDelay(retry int, lo, hi time.Duration) time.Duration {
	d := lo
	for i := 1; i < retry && d < hi; i++ {
		d *= 2
	}
	return min(d, hi)
}
