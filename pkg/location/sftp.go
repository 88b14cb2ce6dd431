package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSFTPPort    = 22
	defaultSFTPTimeout = 30 * time.Second
)

// SFTPConfig holds the SSH parameters shared by every sftp:// location.
// A user in the URL overrides User.
type SFTPConfig struct {
	User                 string
	Password             string
	PrivateKeyPath       string
	PrivateKeyPassphrase string

	// KnownHostsPath verifies server keys. Without it,
	// InsecureIgnoreHostKey must be set explicitly.
	KnownHostsPath        string
	InsecureIgnoreHostKey bool

	Timeout time.Duration
}

// SFTPDialer opens an SFTP session to addr (host:port) as user. The
// returned close func tears down the session and its transport.
type SFTPDialer func(ctx context.Context, addr, user string) (*sftp.Client, func() error, error)

// SFTP resolves sftp://[user@]host[:port]/path locations. Every Open or
// Create dials its own session and releases it on Close.
type SFTP struct {
	user string
	dial SFTPDialer
}

// NewSFTP builds an SSH-backed resolver from cfg.
func NewSFTP(cfg SFTPConfig) (*SFTP, error) {
	base, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSFTPTimeout
	}
	base.Timeout = timeout

	dial := func(ctx context.Context, addr, user string) (*sftp.Client, func() error, error) {
		conf := *base
		conf.User = user

		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		sc, chans, reqs, err := ssh.NewClientConn(conn, addr, &conf)
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
		}
		sshClient := ssh.NewClient(sc, chans, reqs)

		client, err := sftp.NewClient(sshClient)
		if err != nil {
			_ = sshClient.Close()
			return nil, nil, fmt.Errorf("failed to create SFTP client: %w", err)
		}
		return client, func() error {
			return errors.Join(client.Close(), sshClient.Close())
		}, nil
	}
	return NewSFTPWithDialer(cfg.User, dial), nil
}

// NewSFTPWithDialer uses dial for every session. user is the default login.
func NewSFTPWithDialer(user string, dial SFTPDialer) *SFTP {
	return &SFTP{user: user, dial: dial}
}

func (c SFTPConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if c.PrivateKeyPath != "" {
		key, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		var signer ssh.Signer
		if c.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(c.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("sftp requires a password or a private key")
	}

	var hostKey ssh.HostKeyCallback
	switch {
	case c.KnownHostsPath != "":
		cb, err := knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKey = cb
	case c.InsecureIgnoreHostKey:
		hostKey = ssh.InsecureIgnoreHostKey()
	default:
		return nil, errors.New("sftp requires known_hosts_path or insecure_ignore_host_key")
	}

	return &ssh.ClientConfig{Auth: auth, HostKeyCallback: hostKey}, nil
}

// Open downloads the remote file. Missing, non-regular and unreadable files
// yield ErrNotFound.
func (s *SFTP) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	addr, user, remote, err := s.parse(path)
	if err != nil {
		return nil, err
	}
	client, closeSession, err := s.dial(ctx, addr, user)
	if err != nil {
		return nil, err
	}

	info, err := client.Stat(remote)
	if err == nil && !info.Mode().IsRegular() {
		_ = closeSession()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}
	var f *sftp.File
	if err == nil {
		f, err = client.Open(remote)
	}
	if err != nil {
		_ = closeSession()
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &sftpFile{File: f, closeSession: closeSession}, nil
}

// Create truncates or creates the remote file.
func (s *SFTP) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	addr, user, remote, err := s.parse(path)
	if err != nil {
		return nil, err
	}
	client, closeSession, err := s.dial(ctx, addr, user)
	if err != nil {
		return nil, err
	}

	f, err := client.Create(remote)
	if err != nil {
		_ = closeSession()
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &sftpFile{File: f, closeSession: closeSession}, nil
}

func (s *SFTP) parse(path string) (addr, user, remote string, err error) {
	u, err := url.Parse(path)
	if err != nil || u.Scheme != "sftp" || u.Hostname() == "" || u.Path == "" || u.Path == "/" {
		return "", "", "", fmt.Errorf("invalid sftp location %q: want sftp://[user@]host[:port]/path", path)
	}

	port := u.Port()
	if port == "" {
		port = strconv.Itoa(defaultSFTPPort)
	}
	user = s.user
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	if user == "" {
		return "", "", "", fmt.Errorf("no sftp user for %q", path)
	}
	return net.JoinHostPort(u.Hostname(), port), user, u.Path, nil
}

// sftpFile ends the SSH session along with the file.
type sftpFile struct {
	*sftp.File
	closeSession func() error
}

func (f *sftpFile) Close() error {
	err := f.File.Close()
	if cerr := f.closeSession(); err == nil {
		err = cerr
	}
	return err
}
