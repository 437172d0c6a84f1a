// Package config loads the optional application configuration file.
package config

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/dirserve/xtime"
)

const (
	// DefaultAddress is the address the server listens on if none is given.
	DefaultAddress = ":8080"
	// DefaultBufferLimit is the largest text file that is buffered in memory.
	DefaultBufferLimit ByteSize = 4 << 20
	// DefaultShutdownTimeout is how long in-flight requests have to complete
	// when the server is stopped.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config represents the application configuration, backed by a filesystem.
// The file is read as TOML if its name ends in .toml, and as JSON otherwise.
type Config struct {
	Server Server

	fs   vfs.FileSystem
	path string
}

// Server defines configuration options specific to the file server.
type Server struct {
	// Address is the network address in [host]:port format the server will listen on.
	Address sql.Null[string]
	// Root is the directory that is served.
	Root sql.Null[string]
	// TLSCertFile is a PEM certificate chain, or a PKCS#12 bundle.
	TLSCertFile sql.Null[string]
	// TLSKeyFile is the PEM private key of TLSCertFile.
	TLSKeyFile sql.Null[string]
	// TLSPassphrase decrypts TLSKeyFile or the PKCS#12 bundle.
	TLSPassphrase sql.Null[string]
	// BufferLimit is the largest text file that is read into memory before
	// responding. Larger files are streamed.
	BufferLimit sql.Null[ByteSize]
	// MetricsAddress is the network address Prometheus metrics are served on.
	// Metrics are disabled if it's unset.
	MetricsAddress sql.Null[string]
	// ShutdownTimeout is how long in-flight requests have to complete when
	// the server is stopped.
	ShutdownTimeout sql.Null[time.Duration]
}

type cfgWrapper struct {
	Server srvCfgWrapper `json:"server" toml:"server"`
}

type srvCfgWrapper struct {
	Address         string   `json:"address,omitempty" toml:"address,omitempty"`
	Root            string   `json:"root,omitempty" toml:"root,omitempty"`
	TLSCertFile     string   `json:"tls_cert_file,omitempty" toml:"tls_cert_file,omitempty"`
	TLSKeyFile      string   `json:"tls_key_file,omitempty" toml:"tls_key_file,omitempty"`
	TLSPassphrase   string   `json:"tls_passphrase,omitempty" toml:"tls_passphrase,omitempty"`
	BufferLimit     ByteSize `json:"buffer_limit,omitempty" toml:"buffer_limit,omitempty"`
	MetricsAddress  string   `json:"metrics_address,omitempty" toml:"metrics_address,omitempty"`
	ShutdownTimeout string   `json:"shutdown_timeout,omitempty" toml:"shutdown_timeout,omitempty"`
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, the configuration is left empty.
func (c *Config) Load() error {
	data, err := vfs.ReadFile(c.fs, c.path)
	if err != nil {
		if vfs.IsErrNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	var w cfgWrapper
	if c.isTOML() {
		md, err := toml.Decode(string(data), &w)
		if err != nil {
			return fmt.Errorf("failed parsing configuration file: %w", err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			keys := make([]string, 0, len(undec))
			for _, k := range undec {
				keys = append(keys, k.String())
			}
			return fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
		}
	} else if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err = dec.Decode(&w); err != nil {
			return fmt.Errorf("failed parsing configuration file: %w", err)
		}
	}

	return c.fromWrapper(w)
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) isTOML() bool {
	return strings.EqualFold(path.Ext(c.path), ".toml")
}

func (c *Config) fromWrapper(w cfgWrapper) error {
	setString := func(dst *sql.Null[string], v string) {
		if v != "" {
			*dst = sql.Null[string]{V: v, Valid: true}
		}
	}
	setString(&c.Server.Address, w.Server.Address)
	setString(&c.Server.Root, w.Server.Root)
	setString(&c.Server.TLSCertFile, w.Server.TLSCertFile)
	setString(&c.Server.TLSKeyFile, w.Server.TLSKeyFile)
	setString(&c.Server.TLSPassphrase, w.Server.TLSPassphrase)
	setString(&c.Server.MetricsAddress, w.Server.MetricsAddress)

	if w.Server.BufferLimit > 0 {
		c.Server.BufferLimit = sql.Null[ByteSize]{V: w.Server.BufferLimit, Valid: true}
	}

	if w.Server.ShutdownTimeout != "" {
		dur, err := xtime.ParseDuration(w.Server.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("failed parsing shutdown timeout: %w", err)
		}
		if dur < 0 {
			return errors.New("shutdown timeout must not be negative")
		}
		c.Server.ShutdownTimeout = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	if c.Server.TLSKeyFile.Valid && !c.Server.TLSCertFile.Valid {
		return errors.New("tls_key_file is set, but tls_cert_file isn't")
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Server.Address.Valid {
		c.Server.Address = sql.Null[string]{V: DefaultAddress, Valid: true}
	}
	if !c.Server.BufferLimit.Valid {
		c.Server.BufferLimit = sql.Null[ByteSize]{V: DefaultBufferLimit, Valid: true}
	}
	if !c.Server.ShutdownTimeout.Valid {
		c.Server.ShutdownTimeout = sql.Null[time.Duration]{V: DefaultShutdownTimeout, Valid: true}
	}
}
