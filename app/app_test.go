package app

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/dirserve/crypto"
)

var testFiles = map[string]string{
	"a.txt":             "hello",
	"b.txt":             "world",
	".hidden":           "secret",
	"docs/report.txt":   "quarterly report",
	"docs/Summary.md":   "# Summary",
	"docs/sub/deep.txt": "deep",
}

func TestAppLs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		args       []string
		expStdout  []string
		expMissing []string
		expErr     string
	}{
		{
			name:       "ok/root",
			args:       []string{"ls"},
			expStdout:  []string{"a.txt", "b.txt", "docs/", "5.0B"},
			expMissing: []string{".hidden", ".."},
		},
		{
			name:       "ok/subdir",
			args:       []string{"ls", "docs"},
			expStdout:  []string{"report.txt", "Summary.md", "sub/", "16.0B"},
			expMissing: []string{"a.txt", ".."},
		},
		{
			name:      "ok/root_flag",
			args:      []string{"ls", "--root", "docs"},
			expStdout: []string{"report.txt", "sub/"},
		},
		{name: "err/missing", args: []string{"ls", "nope"}, expErr: "'nope' not found"},
		{name: "err/file", args: []string{"ls", "a.txt"}, expErr: "'a.txt' is not a directory"},
		{name: "err/traversal", args: []string{"ls", "../.."}, expErr: "not found"},
		{name: "err/bad_root", args: []string{"ls", "--root", "/nope"}, expErr: "failed reading served root"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tctx, cancel, _ := newTestContext(t, 10*time.Second)
			defer cancel()
			app := newTestApp(tctx, t, testFiles)

			err := app.Run(tc.args...)
			if tc.expErr != "" {
				assert.ErrorContains(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)

			out := app.stdout.String()
			for _, s := range tc.expStdout {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.expMissing {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestAppLsOrder(t *testing.T) {
	t.Parallel()

	tctx, cancel, _ := newTestContext(t, 10*time.Second)
	defer cancel()
	app := newTestApp(tctx, t, map[string]string{"b.txt": "", "a.txt": "", ".hidden": ""})

	require.NoError(t, app.Run("ls"))
	out := app.stdout.String()
	assert.Less(t, strings.Index(out, "a.txt"), strings.Index(out, "b.txt"))
	assert.NotContains(t, out, ".hidden")
}

func TestAppSearch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		args       []string
		expStdout  []string
		expMissing []string
		expStderr  string
		expErr     string
	}{
		{
			name:       "ok/term",
			args:       []string{"search", "report"},
			expStdout:  []string{"docs/report.txt"},
			expMissing: []string{"a.txt", "Summary.md"},
		},
		{
			name:      "ok/case_insensitive",
			args:      []string{"search", "SUMMARY", "docs"},
			expStdout: []string{"Summary.md"},
		},
		{
			name:       "ok/empty_term",
			args:       []string{"search", "", "docs"},
			expStdout:  []string{"report.txt", "Summary.md", "sub/", "sub/deep.txt"},
			expMissing: []string{"a.txt"},
		},
		{
			name:      "ok/no_results",
			args:      []string{"search", "nothing-matches"},
			expStderr: "no results found",
		},
		{name: "err/scope_missing", args: []string{"search", "x", "nope"}, expErr: "'nope' not found"},
		{name: "err/scope_file", args: []string{"search", "x", "a.txt"}, expErr: "is not a directory"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tctx, cancel, _ := newTestContext(t, 10*time.Second)
			defer cancel()
			app := newTestApp(tctx, t, testFiles)

			err := app.Run(tc.args...)
			if tc.expErr != "" {
				assert.ErrorContains(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)

			out := app.stdout.String()
			for _, s := range tc.expStdout {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.expMissing {
				assert.NotContains(t, out, s)
			}
			if tc.expStderr != "" {
				assert.Contains(t, app.stderr.String(), tc.expStderr)
			}
		})
	}
}

func TestAppGencert(t *testing.T) {
	t.Parallel()

	t.Run("ok/separate", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, nil)

		require.NoError(t, app.Run("gencert", "--host", "example.test,10.0.0.1", "--cert-file", "tls/cert.pem",
			"--key-file", "tls/key.pem"))
		assert.Contains(t, app.stdout.String(), "--ssl /srv/www/tls/cert.pem,/srv/www/tls/key.pem")

		cert, err := crypto.LoadTLSCert(app.fs, rootDir+"/tls/cert.pem", rootDir+"/tls/key.pem", "")
		require.NoError(t, err)
		require.NotNil(t, cert.Leaf)
		assert.Equal(t, "example.test", cert.Leaf.Subject.CommonName)
		assert.Equal(t, []string{"example.test"}, cert.Leaf.DNSNames)
		assert.Len(t, cert.Leaf.IPAddresses, 1)
		assert.Equal(t, timeNow.Add(365*24*time.Hour), cert.Leaf.NotAfter.UTC())
		assert.Contains(t, app.stdout.String(), "Valid for 1Y, until ")
	})

	t.Run("ok/combined", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, nil)

		require.NoError(t, app.Run("gencert", "--combined", "--valid-for", "2w"))
		assert.Contains(t, app.stdout.String(), "Wrote certificate and private key to /srv/www/cert.pem")
		assert.Contains(t, app.stdout.String(), "Valid for 2w, until ")

		cert, err := crypto.LoadTLSCert(app.fs, rootDir+"/cert.pem", "", "")
		require.NoError(t, err)
		require.NotNil(t, cert.Leaf)
		assert.Equal(t, timeNow.Add(14*24*time.Hour), cert.Leaf.NotAfter.UTC())
		_, err = app.fs.Stat(rootDir + "/key.pem")
		assert.True(t, vfs.IsErrNotExist(err))
	})

	t.Run("err/invalid_validity", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, nil)

		err := app.Run("gencert", "--valid-for", "0s")
		assert.ErrorContains(t, err, "invalid validity period")
	})

	t.Run("err/unparseable_validity", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, nil)

		err := app.Run("gencert", "--valid-for", "forever")
		assert.ErrorContains(t, err, "invalid duration 'forever'")
	})
}

func TestAppConfig(t *testing.T) {
	t.Parallel()

	t.Run("ok/root_from_config", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, testFiles)
		require.NoError(t, vfs.WriteFile(app.fs, configPath,
			[]byte(`{"server": {"root": "/srv/www/docs"}}`), 0o644))

		require.NoError(t, app.Run("ls"))
		assert.Contains(t, app.stdout.String(), "report.txt")
		assert.NotContains(t, app.stdout.String(), "a.txt")
	})

	t.Run("ok/flag_overrides_config", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, testFiles)
		require.NoError(t, vfs.WriteFile(app.fs, configPath,
			[]byte(`{"server": {"root": "/srv/www/docs"}}`), 0o644))

		require.NoError(t, app.Run("ls", "--root", rootDir))
		assert.Contains(t, app.stdout.String(), "a.txt")
	})

	t.Run("ok/toml_config_file_flag", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, testFiles)
		require.NoError(t, app.fs.MkdirAll("/etc", 0o755))
		require.NoError(t, vfs.WriteFile(app.fs, "/etc/dirserve.toml",
			[]byte("[server]\nroot = \"/srv/www/docs/sub\"\n"), 0o644))

		require.NoError(t, app.Run("--config-file", "/etc/dirserve.toml", "ls"))
		assert.Contains(t, app.stdout.String(), "deep.txt")
	})

	t.Run("err/invalid_config", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, testFiles)
		require.NoError(t, vfs.WriteFile(app.fs, configPath, []byte(`{"server": 1}`), 0o644))

		err := app.Run("ls")
		assert.ErrorContains(t, err, "failed parsing configuration file")
	})

	t.Run("err/invalid_address", func(t *testing.T) {
		t.Parallel()

		tctx, cancel, _ := newTestContext(t, 10*time.Second)
		defer cancel()
		app := newTestApp(tctx, t, testFiles)
		require.NoError(t, vfs.WriteFile(app.fs, configPath,
			[]byte(`{"server": {"address": "nope"}}`), 0o644))

		err := app.Run("ls")
		assert.ErrorContains(t, err, "invalid server address 'nope'")
	})
}

func TestAppServe(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 20*time.Second)
	defer cancel()
	app := newTestApp(tctx, t, testFiles)
	require.NoError(t, vfs.WriteFile(app.fs, configPath, []byte(`{"server": {
		"address": "127.0.0.1:0",
		"metrics_address": "127.0.0.1:0",
		"shutdown_timeout": "1s"
	}}`), 0o644))

	srvAddrCh := make(chan string)
	metricsAddrCh := make(chan string)
	tlsWarnCh := make(chan string)
	app.stderr.waitFor(`component=web-server address=(\S+) tls=false`, 1, srvAddrCh)
	app.stderr.waitFor(`component=metrics-server address=(\S+)`, 1, metricsAddrCh)
	app.stderr.waitFor(`failed loading TLS certificate`, 0, tlsWarnCh)

	runErr := make(chan error, 1)
	go func() {
		// No command name, since serve is the default. The invalid TLS files
		// make the server fall back to plain HTTP.
		runErr <- app.Run("--ssl", "/nope/cert.pem,/nope/key.pem")
	}()

	var srvAddr, metricsAddr string
	for srvAddr == "" || metricsAddr == "" {
		select {
		case srvAddr = <-srvAddrCh:
		case metricsAddr = <-metricsAddrCh:
		case err := <-runErr:
			t.Fatalf("serve exited early: %v", err)
		case <-tctx.Done():
			t.Fatal("timed out waiting for the servers to start")
		}
	}
	select {
	case <-tlsWarnCh:
	case <-tctx.Done():
		t.Fatal("timed out waiting for the TLS warning")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	get := func(url string) (int, string) {
		resp, err := client.Get(url)
		h(assert.NoError(t, err))
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		h(assert.NoError(t, err))
		return resp.StatusCode, string(body)
	}

	code, body := get(fmt.Sprintf("http://%s/", srvAddr))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<a href="/a.txt">a.txt</a>`)
	assert.Contains(t, body, "dirserve ")

	code, body = get(fmt.Sprintf("http://%s/docs/report.txt", srvAddr))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "quarterly report", body)

	code, _ = get(fmt.Sprintf("http://%s/?search=&foo=bar", srvAddr))
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	// Request metrics are recorded after the response is sent.
	assert.Eventually(t, func() bool {
		code, body = get(fmt.Sprintf("http://%s/metrics", metricsAddr))
		return code == http.StatusOK &&
			strings.Contains(body, `dirserve_responses_total{kind="listing"} 1`) &&
			strings.Contains(body, `dirserve_responses_total{kind="file"} 1`) &&
			strings.Contains(body, `dirserve_http_requests_total{code="405"} 1`)
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the server to stop")
	}
}
