package upload

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"ripline/internal/config"
	"ripline/internal/services"
)

// Session is the remote filesystem surface the uploader needs.
type Session interface {
	MkdirAll(dir string) error
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
	Close() error
}

// Dialer opens a Session.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// SFTPDialer dials an SSH server with password authentication.
type SFTPDialer struct {
	Address        string
	User           string
	Password       string
	KnownHostsPath string
	Timeout        time.Duration
}

// NewSFTPDialer builds a dialer from the upload config section.
func NewSFTPDialer(cfg config.Upload) *SFTPDialer {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return &SFTPDialer{
		Address:        net.JoinHostPort(strings.TrimSpace(cfg.Host), strconv.Itoa(port)),
		User:           cfg.User,
		Password:       cfg.Password,
		KnownHostsPath: cfg.KnownHostsPath,
		Timeout:        15 * time.Second,
	}
}

func (d *SFTPDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if strings.TrimSpace(d.KnownHostsPath) == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}
	return knownhosts.New(d.KnownHostsPath)
}

// Dial connects and starts the SFTP subsystem.
func (d *SFTPDialer) Dial(ctx context.Context) (Session, error) {
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "dial", "load known_hosts", err)
	}
	clientConfig := &ssh.ClientConfig{
		User:            d.User,
		Auth:            []ssh.AuthMethod{ssh.Password(d.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         d.Timeout,
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "upload", "dial", d.Address, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, d.Address, clientConfig)
	if err != nil {
		_ = conn.Close()
		return nil, services.Wrap(services.ErrExternalService, "upload", "handshake", d.Address, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrExternalService, "upload", "start sftp", d.Address, err)
	}
	return &sftpSession{ssh: client, sftp: sftpClient}, nil
}

type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *sftpSession) MkdirAll(dir string) error { return s.sftp.MkdirAll(dir) }

func (s *sftpSession) Create(path string) (io.WriteCloser, error) { return s.sftp.Create(path) }

func (s *sftpSession) Remove(path string) error { return s.sftp.Remove(path) }

func (s *sftpSession) Close() error {
	sftpErr := s.sftp.Close()
	sshErr := s.ssh.Close()
	if sftpErr != nil {
		return fmt.Errorf("close sftp: %w", sftpErr)
	}
	return sshErr
}
