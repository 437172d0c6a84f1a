// Package crypto loads and creates the TLS certificates used by the server.
package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"path"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"golang.org/x/crypto/pkcs12"
)

const (
	pemTypeCert   = "CERTIFICATE"
	pemTypePKCS8  = "PRIVATE KEY"
	pemTypeEncKey = "ENCRYPTED PRIVATE KEY"
)

// DefaultTLSConfig returns the server TLS configuration.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		// Only use curves which have constant-time implementations
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
		NextProtos:       []string{"h2", "http/1.1"},
	}
}

// LoadTLSCert reads a certificate and private key from fsys. The following
// formats are supported:
//   - A PEM certificate chain in certPath, and a PEM private key in keyPath.
//     The key may be encrypted with passphrase using legacy PEM encryption.
//   - A single PEM file with both the chain and the key, when keyPath is empty
//     or equal to certPath.
//   - A PKCS#12 bundle, when certPath ends in .p12 or .pfx. keyPath is ignored.
func LoadTLSCert(fsys vfs.FileSystem, certPath, keyPath, passphrase string) (tls.Certificate, error) {
	certData, err := vfs.ReadFile(fsys, certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed reading certificate file: %w", err)
	}

	switch ext := strings.ToLower(path.Ext(certPath)); {
	case ext == ".p12" || ext == ".pfx":
		return loadPKCS12(certData, passphrase)
	case keyPath == "" || keyPath == certPath:
		return DeserializeTLSCert(certData, passphrase)
	}

	keyData, err := vfs.ReadFile(fsys, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed reading private key file: %w", err)
	}

	keyPEM, err := decodeKey(keyData, passphrase)
	if err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair(certData, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("invalid certificate and key pair: %w", err)
	}

	return cert, nil
}

// decodeKey returns the first private key PEM block in data, decrypting it
// with passphrase if needed.
func decodeKey(data []byte, passphrase string) ([]byte, error) {
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return nil, errors.New("no private key found")
		}
		data = rest

		if block.Type == pemTypeEncKey {
			return nil, errors.New("encrypted PKCS#8 private keys are not supported")
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}

		//nolint:staticcheck // Legacy PEM encryption is insecure, but still produced by some tools.
		if !x509.IsEncryptedPEMBlock(block) {
			return pem.EncodeToMemory(block), nil
		}
		if passphrase == "" {
			return nil, errors.New("private key is encrypted, but no passphrase was provided")
		}
		//nolint:staticcheck // See above.
		der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed decrypting private key: %w", err)
		}

		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
	}
}

func loadPKCS12(data []byte, passphrase string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed decoding PKCS#12 data: %w", err)
	}

	var certPEM, keyPEM []byte
	for _, b := range blocks {
		// Drop bag attributes, which tls.X509KeyPair doesn't expect.
		b = &pem.Block{Type: b.Type, Bytes: b.Bytes}
		if b.Type == pemTypeCert {
			certPEM = append(certPEM, pem.EncodeToMemory(b)...)
		} else if strings.HasSuffix(b.Type, "PRIVATE KEY") {
			keyPEM = pem.EncodeToMemory(b)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("invalid PKCS#12 certificate and key pair: %w", err)
	}

	return cert, nil
}

// NewTLSCert creates a self-signed X.509 v3 server certificate using a new
// ECDSA P-256 private key. hosts may contain DNS names and IP addresses.
// Reference: https://eli.thegreenplace.net/2021/go-https-servers-with-tls/
func NewTLSCert(subjectName string, hosts []string, notBefore, notAfter time.Time) (tls.Certificate, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed generating serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"dirserve"},
			CommonName:   subjectName,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed generating ECDSA key pair: %w", err)
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed creating X.509 certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed parsing X.509 certificate from ASN.1 DER data: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privKey,
		Leaf:        leaf,
	}, nil
}

// EncodeTLSCert returns the PEM-encoded certificate chain and PKCS#8 private
// key of cert.
func EncodeTLSCert(cert tls.Certificate) (certPEM, keyPEM []byte, err error) {
	var buf bytes.Buffer

	// The first certificate is the leaf, followed by any intermediates.
	for _, certDER := range cert.Certificate {
		if err = pem.Encode(&buf, &pem.Block{Type: pemTypeCert, Bytes: certDER}); err != nil {
			return nil, nil, fmt.Errorf("failed encoding certificate: %w", err)
		}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed encoding private key: %w", err)
	}

	return buf.Bytes(), pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8, Bytes: keyDER}), nil
}

// SerializeTLSCert converts a tls.Certificate to a single PEM-encoded byte slice
// containing the certificate chain followed by the private key.
func SerializeTLSCert(cert tls.Certificate) ([]byte, error) {
	certPEM, keyPEM, err := EncodeTLSCert(cert)
	if err != nil {
		return nil, err
	}

	return append(certPEM, keyPEM...), nil
}

// DeserializeTLSCert reconstructs a tls.Certificate from PEM-encoded data
// containing certificate chain and private key blocks. An encrypted key is
// decrypted with passphrase.
func DeserializeTLSCert(data []byte, passphrase string) (tls.Certificate, error) {
	var certPEMs [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == pemTypeCert {
			certPEMs = append(certPEMs, pem.EncodeToMemory(block))
		}
	}

	keyPEM, err := decodeKey(data, passphrase)
	if err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair(bytes.Join(certPEMs, nil), keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("invalid certificate and key pair: %w", err)
	}

	return cert, nil
}
