package platform

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

const (
	testSSHUser     = "ops"
	testSSHPassword = "secret"
	// hangCommand never completes; the client has to time out.
	hangCommand = "sleep infinity"
)

// testSSHServer is an in-process SSH server that answers exec requests
// from a table of canned outputs. Unknown commands exit 127.
type testSSHServer struct {
	ln      net.Listener
	hostKey ssh.PublicKey

	mu       sync.Mutex
	outputs  map[string]string
	conns    []net.Conn
	commands []string
}

func startTestSSHServer(t *testing.T, outputs map[string]string) *testSSHServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(md ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if md.User() == testSSHUser && string(password) == testSSHPassword {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &testSSHServer{ln: ln, hostKey: signer.PublicKey(), outputs: outputs}
	go s.serve(cfg)
	t.Cleanup(func() {
		ln.Close()
		s.dropConnections()
	})
	return s
}

// config returns a client config for s with password auth and a pinned
// host key.
func (s *testSSHServer) config() RemoteConfig {
	addr := s.ln.Addr().(*net.TCPAddr)
	return RemoteConfig{
		Host:            addr.IP.String(),
		Port:            addr.Port,
		User:            testSSHUser,
		AuthMethod:      PasswordAuth{Password: testSSHPassword},
		HostKeyCallback: ssh.FixedHostKey(s.hostKey),
	}
}

func (s *testSSHServer) setOutput(cmd, out string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[cmd] = out
}

func (s *testSSHServer) ran() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// dropConnections closes every accepted TCP connection, as a network
// failure would.
func (s *testSSHServer) dropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (s *testSSHServer) serve(cfg *ssh.ServerConfig) {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, nc)
		s.mu.Unlock()
		go s.handle(nc, cfg)
	}
}

func (s *testSSHServer) handle(nc net.Conn, cfg *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "session channels only")
			continue
		}
		ch, chReqs, err := nch.Accept()
		if err != nil {
			continue
		}
		go s.exec(ch, chReqs)
	}
}

func (s *testSSHServer) exec(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		out, ok := s.outputs[payload.Command]
		s.mu.Unlock()

		if payload.Command == hangCommand {
			// Stdin reaches EOF at once; wait for the client to close the
			// channel instead.
			for r := range reqs {
				if r.WantReply {
					r.Reply(false, nil)
				}
			}
			return
		}

		status := uint32(0)
		if ok {
			io.WriteString(ch, out)
		} else {
			io.WriteString(ch.Stderr(), "command not found\n")
			status = 127
		}
		ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}
