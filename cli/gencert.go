package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/dirserve/app/context"
	"go.hackfix.me/dirserve/crypto"
	"go.hackfix.me/dirserve/xtime"
)

// Gencert generates a self-signed TLS certificate.
type Gencert struct {
	//nolint:lll // Long struct tags are unavoidable.
	Host     []string       `sep:"," default:"localhost,127.0.0.1,::1" help:"Host names and IP addresses the certificate is valid for."`
	ValidFor xtime.Duration `default:"1y" help:"Certificate validity period. Supports days (d), weeks (w), months (M) and years (y)."`
	CertFile string         `default:"cert.pem" help:"Path to write the PEM certificate to."`
	KeyFile  string         `default:"key.pem" help:"Path to write the PEM private key to."`
	Combined bool           `help:"Write the certificate and private key to CERT-FILE only."`
}

// Run the gencert command.
func (c *Gencert) Run(appCtx *actx.Context) error {
	if c.ValidFor <= 0 {
		return fmt.Errorf("invalid validity period: %s", c.ValidFor)
	}
	if len(c.Host) == 0 {
		return errors.New("at least one host is required")
	}

	now := appCtx.TimeNow()
	notAfter := now.Add(time.Duration(c.ValidFor))
	cert, err := crypto.NewTLSCert(c.Host[0], c.Host, now.Add(-time.Minute), notAfter)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	certPath := absPath(appCtx, c.CertFile)
	if c.Combined {
		data, err := crypto.SerializeTLSCert(cert)
		if err != nil {
			return err //nolint:wrapcheck // Already descriptive.
		}
		if err = writeFile(appCtx.FS, certPath, data, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(appCtx.Stdout, "Wrote certificate and private key to %s\n", certPath)
		printValidity(appCtx, c.ValidFor, notAfter)
		return nil
	}

	certPEM, keyPEM, err := crypto.EncodeTLSCert(cert)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	keyPath := absPath(appCtx, c.KeyFile)
	if err = writeFile(appCtx.FS, certPath, certPEM, 0o644); err != nil {
		return err
	}
	if err = writeFile(appCtx.FS, keyPath, keyPEM, 0o600); err != nil {
		return err
	}

	fmt.Fprintf(appCtx.Stdout, "Wrote certificate to %s\nWrote private key to %s\n", certPath, keyPath)
	printValidity(appCtx, c.ValidFor, notAfter)
	fmt.Fprintf(appCtx.Stdout, "Use with: --ssl %s,%s\n", certPath, keyPath)

	return nil
}

func printValidity(appCtx *actx.Context, validFor xtime.Duration, notAfter time.Time) {
	fmt.Fprintf(appCtx.Stdout, "Valid for %s, until %s\n", validFor, notAfter.UTC().Format(time.RFC3339))
}

func writeFile(fs vfs.FileSystem, path string, data []byte, perm os.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed creating directory: %w", err)
	}
	if err := vfs.WriteFile(fs, path, data, perm); err != nil {
		return fmt.Errorf("failed writing '%s': %w", path, err)
	}

	return nil
}
