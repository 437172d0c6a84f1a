package cli

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/dirserve/app/config"
	actx "go.hackfix.me/dirserve/app/context"
	"go.hackfix.me/dirserve/xtime"
)

// CLI is the command line interface of dirserve.
type CLI struct {
	Serve   Serve   `kong:"cmd,default='withargs',help='Serve a directory over HTTP. This is the default command.'"`
	Ls      Ls      `kong:"cmd,help='List the contents of a directory, as the server would.'"`
	Search  Search  `kong:"cmd,help='Search for files and directories by name, as the server would.'"`
	Gencert Gencert `kong:"cmd,help='Generate a self-signed TLS certificate and private key.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: kong.ConfigFlag isn't used, since configuration is managed
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the configuration file. TOML is used if the name ends in .toml, JSON otherwise.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("dirserve"),
		kong.Description("Serve a directory tree over HTTP, with listings and search."),
		kong.UsageOnError(),
		kong.DefaultEnvars("DIRSERVE"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile":         configFilePath,
			"version":            version,
			"defaultBufferLimit": config.DefaultBufferLimit.String(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) error {
	srv := cfg.Server

	if srv.Address.Valid {
		host, port, err := net.SplitHostPort(srv.Address.V)
		if err != nil {
			return fmt.Errorf("invalid server address '%s': %w", srv.Address.V, err)
		}
		if c.Serve.Bind == "" {
			c.Serve.Bind = host
		}
		if c.Serve.Port == 0 {
			p, err := strconv.ParseUint(port, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid server port '%s': %w", port, err)
			}
			c.Serve.Port = uint16(p)
		}
	}

	if srv.Root.Valid {
		for _, root := range []*string{&c.Serve.Root, &c.Ls.Root, &c.Search.Root} {
			if *root == "" {
				*root = srv.Root.V
			}
		}
	}

	if len(c.Serve.SSL) == 0 && srv.TLSCertFile.Valid {
		c.Serve.SSL = []string{srv.TLSCertFile.V, srv.TLSKeyFile.V, srv.TLSPassphrase.V}
	}
	if c.Serve.BufferLimit == 0 && srv.BufferLimit.Valid {
		c.Serve.BufferLimit = srv.BufferLimit.V
	}
	if c.Serve.MetricsAddress == "" && srv.MetricsAddress.Valid {
		c.Serve.MetricsAddress = srv.MetricsAddress.V
	}
	if c.Serve.ShutdownTimeout == 0 && srv.ShutdownTimeout.Valid {
		c.Serve.ShutdownTimeout = xtime.Duration(srv.ShutdownTimeout.V)
	}

	return nil
}
