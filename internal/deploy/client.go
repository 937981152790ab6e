package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"gearrent/internal/logger"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Result is the captured outcome of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a shell command on the remote host. A non-zero exit code is
// reported in Result, not as an error; errors mean the transport failed.
type Executor interface {
	Run(ctx context.Context, cmd string) (Result, error)
}

// Client is an Executor over a single SSH connection, one session per command.
type Client struct {
	conn *ssh.Client
}

// Dial authenticates against cfg.SSH and returns a connected Client.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := cfg.Addr()
	logger.ExternalServiceCall("ssh", "dial", "addr", addr, "user", cfg.SSH.User)

	dialer := net.Dialer{Timeout: cfg.SSH.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.ExternalServiceResult("ssh", "dial", err, "addr", addr)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientCfg)
	if err != nil {
		_ = netConn.Close()
		logger.ExternalServiceResult("ssh", "dial", err, "addr", addr)
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	logger.ExternalServiceResult("ssh", "dial", nil, "addr", addr)

	return &Client{conn: ssh.NewClient(c, chans, reqs)}, nil
}

func clientConfig(cfg *Config) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if cfg.SSH.KeyFile != "" {
		pem, err := os.ReadFile(cfg.SSH.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.SSH.Password != "" {
		password := cfg.SSH.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if !cfg.SSH.InsecureHostKey {
		cb, err := knownhosts.New(cfg.SSH.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", cfg.SSH.KnownHosts, err)
		}
		hostKey = cb
	}

	return &ssh.ClientConfig{
		User:            cfg.SSH.User,
		Auth:            methods,
		HostKeyCallback: hostKey,
		Timeout:         cfg.SSH.Timeout,
	}, nil
}

// lockedBuffer is written by the session's copy goroutines and read by Run.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// closeGrace bounds how long a cancelled Run waits for the remote side to
// acknowledge the session close.
const closeGrace = 2 * time.Second

// Run opens a fresh session for cmd. Cancelling ctx kills and closes the
// session; the partial output is returned with ExitCode -1.
func (c *Client) Run(ctx context.Context, cmd string) (Result, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr lockedBuffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		select {
		case <-done:
		case <-time.After(closeGrace):
		}
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, ctx.Err()
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	case errors.As(err, &missingErr):
		res.ExitCode = -1
	default:
		return res, fmt.Errorf("run %q: %w", cmd, err)
	}
	return res, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
