// Package relay exposes a reader transport over QUIC so the reader can sit
// on a different host (typically the board that also powers the target).
//
// Every exchange uses its own bidirectional stream. The client writes the
// command APDU and closes its side; the server answers with one status byte
// followed by either the response APDU or an error text, then closes.
package relay

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"math/big"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	alpn = "acr-relay"

	// codeBusy closes connections made while another client owns the reader.
	codeBusy quic.ApplicationErrorCode = 0x01

	statusOK    byte = 0x00
	statusError byte = 0x01

	// maxMessage bounds what either side reads from one stream.
	maxMessage = 4096

	defaultTimeout = 10 * time.Second
)

// ErrRemote wraps failures reported by the remote transport.
var ErrRemote = errors.New("relay: remote transport failed")

// ErrBusy is returned when the server already serves another client.
var ErrBusy = errors.New("relay: reader in use by another client")

// Config configures both ends of the relay.
type Config struct {
	Address string // "host:port"
	// TLSConfig is used as is when set. Otherwise the server generates a
	// self-signed certificate and the client skips verification.
	TLSConfig *tls.Config
	// Timeout bounds one exchange; 0 means 10s.
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func serverTLS(cfg Config) (*tls.Config, error) {
	if cfg.TLSConfig != nil {
		return cfg.TLSConfig, nil
	}
	return generateTLSConfig()
}

func clientTLS(cfg Config) *tls.Config {
	if cfg.TLSConfig != nil {
		return cfg.TLSConfig
	}
	return &tls.Config{
		NextProtos:         []string{alpn},
		InsecureSkipVerify: true,
	}
}

// generateTLSConfig generates a self-signed certificate for the listener.
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{alpn},
	}, nil
}
