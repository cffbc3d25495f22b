package testutil

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// SSHServerOptions controls which credentials the test bastion accepts.
type SSHServerOptions struct {
	Password      string
	AuthorizedKey ssh.PublicKey
}

// SSHServer is an in-process SSH bastion that only serves
// direct-tcpip channels.
type SSHServer struct {
	Addr    string
	HostKey ssh.PublicKey

	// Forwarded receives the host:port of every forwarded channel.
	Forwarded chan string

	listener net.Listener
	wg       sync.WaitGroup
}

// directTCPIP is the RFC 4254 §7.2 channel payload.
type directTCPIP struct {
	Host     string
	Port     uint32
	OrigHost string
	OrigPort uint32
}

// NewSSHSigner returns a fresh ed25519 signer.
func NewSSHSigner(t testing.TB) ssh.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)
	return signer
}

// StartSSHServer listens on 127.0.0.1 and stops at test cleanup.
func StartSSHServer(t testing.TB, opts SSHServerOptions) *SSHServer {
	t.Helper()

	hostKey := NewSSHSigner(t)
	config := &ssh.ServerConfig{}
	if opts.Password != "" {
		config.PasswordCallback = func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == opts.Password {
				return nil, nil
			}
			return nil, io.ErrUnexpectedEOF
		}
	}
	if opts.AuthorizedKey != nil {
		want := opts.AuthorizedKey.Marshal()
		config.PublicKeyCallback = func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), want) {
				return nil, nil
			}
			return nil, io.ErrUnexpectedEOF
		}
	}
	config.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &SSHServer{
		Addr:      ln.Addr().String(),
		HostKey:   hostKey.PublicKey(),
		Forwarded: make(chan string, 8),
		listener:  ln,
	}
	s.wg.Add(1)
	go s.serve(config)

	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

// Port returns the listening port.
func (s *SSHServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *SSHServer) serve(config *ssh.ServerConfig) {
	defer s.wg.Done()

	var conns []net.Conn
	var mu sync.Mutex
	defer func() {
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, conn)
		mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn, config)
		}()
	}
}

func (s *SSHServer) handle(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "direct-tcpip" {
			newCh.Reject(ssh.UnknownChannelType, "only direct-tcpip") //nolint:errcheck
			continue
		}
		var req directTCPIP
		if err := ssh.Unmarshal(newCh.ExtraData(), &req); err != nil {
			newCh.Reject(ssh.ConnectionFailed, "bad payload") //nolint:errcheck
			continue
		}
		target := net.JoinHostPort(req.Host, strconv.Itoa(int(req.Port)))
		upstream, err := net.Dial("tcp", target)
		if err != nil {
			newCh.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			upstream.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)

		select {
		case s.Forwarded <- target:
		default:
		}

		go func() {
			defer ch.Close()
			defer upstream.Close()
			done := make(chan struct{}, 2)
			go func() { io.Copy(upstream, ch); done <- struct{}{} }() //nolint:errcheck
			go func() { io.Copy(ch, upstream); done <- struct{}{} }() //nolint:errcheck
			<-done
		}()
	}
}
