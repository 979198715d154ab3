package writerbackends

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"time"

	"pixshift/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const (
	sftpDefaultPort   = "22"
	sftpDialTimeout   = 10 * time.Second
	sftpPartialSuffix = ".part"
)

// sftpTarget is an SFTP publish destination decoded from stored credentials.
type sftpTarget struct {
	addr       string
	remotePath string
	config     *ssh.ClientConfig
}

// parseSFTPTarget reads host, user and remotePath plus one of password or
// privateKey (base64 or raw PEM). port defaults to 22. hostKey, an
// authorized_keys line, pins the server key; without it any key is accepted.
func parseSFTPTarget(accessInfo map[string]string) (sftpTarget, error) {
	host, user, remotePath := accessInfo["host"], accessInfo["user"], accessInfo["remotePath"]
	if host == "" || user == "" || remotePath == "" {
		return sftpTarget{}, errors.New("sftp target needs host, user and remotePath")
	}
	port := accessInfo["port"]
	if port == "" {
		port = sftpDefaultPort
	}

	var auth ssh.AuthMethod
	switch {
	case accessInfo["privateKey"] != "":
		key := accessInfo["privateKey"]
		keyBytes, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			keyBytes = []byte(key)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return sftpTarget{}, fmt.Errorf("parse private key: %w", err)
		}
		auth = ssh.PublicKeys(signer)
	case accessInfo["password"] != "":
		auth = ssh.Password(accessInfo["password"])
	default:
		return sftpTarget{}, errors.New("sftp target needs a password or privateKey")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if hostKey := accessInfo["hostKey"]; hostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(hostKey))
		if err != nil {
			return sftpTarget{}, fmt.Errorf("parse host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	}

	return sftpTarget{
		addr:       net.JoinHostPort(host, port),
		remotePath: remotePath,
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{auth},
			HostKeyCallback: hostKeyCallback,
			Timeout:         sftpDialTimeout,
		},
	}, nil
}

// UploadToSFTPWithCreds publishes one converted image to an SFTP server.
// The file is streamed to "<remotePath>.part" and renamed into place once
// complete, so readers on the server never see a partial image. Cancelling
// ctx aborts the transfer.
func UploadToSFTPWithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	target, err := parseSFTPTarget(accessInfo)
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: sftpDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", target.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target.addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, target.addr, target.config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", target.addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("start sftp session on %s: %w", target.addr, err)
	}
	defer client.Close()

	if dir := path.Dir(target.remotePath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("create publish folder %s: %w", dir, err)
		}
	}

	partial := target.remotePath + sftpPartialSuffix
	n, err := writeRemote(client, partial, reader)
	if err != nil {
		client.Remove(partial)
		return err
	}
	if err := client.PosixRename(partial, target.remotePath); err != nil {
		client.Remove(partial)
		return fmt.Errorf("move %s into place: %w", target.remotePath, err)
	}

	logger.Infof("Published %s (%d bytes) to sftp://%s", target.remotePath, n, target.addr)
	return nil
}

func writeRemote(client *sftp.Client, name string, reader io.Reader) (int64, error) {
	f, err := client.Create(name)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("upload %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", name, err)
	}
	return n, nil
}
