package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewkuryan/brownie/api"
	"github.com/andrewkuryan/brownie/signature"
	"github.com/andrewkuryan/brownie/srp"
	"github.com/andrewkuryan/brownie/storage/memory"
	"github.com/andrewkuryan/brownie/store"
)

var quietLogger = slog.New(slog.DiscardHandler)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := loadServerConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, storageMemory, cfg.Storage)
	assert.Equal(t, api.DefaultTempSessionTTL, cfg.TempSessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Nil(t, cfg.DataKey)
	assert.Equal(t, srp.RFC5054Group2048().N, cfg.SRP.N)
	assert.Equal(t, 2048, cfg.SRP.NBitLen)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	t.Setenv("BROWNIE_PORT", "9090")
	t.Setenv("BROWNIE_STORAGE", "bbolt")
	t.Setenv("BROWNIE_DATA_KEY", key)
	t.Setenv("BROWNIE_TEMP_SESSION_TTL", "90s")
	t.Setenv("BROWNIE_LOG_LEVEL", "debug")
	t.Setenv("BROWNIE_SRP_N", "1ff")
	t.Setenv("BROWNIE_SRP_G", "5")
	t.Setenv("BROWNIE_SMTP_SERVER", "smtp.example.com")
	t.Setenv("BROWNIE_SMTP_SENDER_EMAIL", "noreply@example.com")
	t.Setenv("BROWNIE_TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := loadServerConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, storageBBolt, cfg.Storage)
	assert.Len(t, cfg.DataKey, 32)
	assert.Equal(t, 90*time.Second, cfg.TempSessionTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, int64(0x1ff), cfg.SRP.N.Int64())
	assert.Equal(t, 9, cfg.SRP.NBitLen)
	assert.Equal(t, int64(5), cfg.SRP.G.Int64())
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
}

func TestLoadServerConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brownie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\nsmtp:\n  sender-name: Brownie\n"), 0o600))

	v := newViper()
	require.NoError(t, readConfig(v, path))
	cfg, err := loadServerConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "Brownie", cfg.SMTP.SenderName)
}

func TestLoadServerConfigInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port":      {"BROWNIE_PORT": "70000"},
		"storage":   {"BROWNIE_STORAGE": "postgres"},
		"data key":  {"BROWNIE_DATA_KEY": "c2hvcnQ="},
		"log level": {"BROWNIE_LOG_LEVEL": "loud"},
		"srp n":     {"BROWNIE_SRP_N": "xyz"},
		"tls":       {"BROWNIE_TLS_CERT": "cert.pem"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, val := range env {
				t.Setenv(k, val)
			}
			_, err := loadServerConfig(newViper())
			assert.Error(t, err)
		})
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	assert.Error(t, readConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml")))
	assert.NoError(t, readConfig(newViper(), ""))
}

func TestPrintKeyPair(t *testing.T) {
	pub, priv, err := signature.GenerateKeyPair()
	require.NoError(t, err)
	kp := keyPair{PublicKey: pub, PrivateKey: priv}

	var buf bytes.Buffer
	require.NoError(t, printKeyPair(&buf, kp, true))
	var decoded keyPair
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, kp, decoded)

	buf.Reset()
	require.NoError(t, printKeyPair(&buf, kp, false))
	assert.Contains(t, buf.String(), "BROWNIE_ECDSA_PRIVATE_KEY="+priv)

	signer, err := signature.NewSigner(decoded.PrivateKey)
	require.NoError(t, err)
	defer signer.Destroy()
	assert.Equal(t, pub, signer.PublicKey())
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("s3cret\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	pw, err = readPassword(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)

	_, err = readPassword(strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestComputeVerifierLogsIn(t *testing.T) {
	group := srp.RFC5054Group2048()
	out, err := computeVerifier(group, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", out.Login)

	engine, err := srp.NewFromGroup(group)
	require.NoError(t, err)
	verifier, err := srp.ParseHex(out.VerifierHex)
	require.NoError(t, err)

	client, err := srp.NewClient(engine)
	require.NoError(t, err)
	serverK, B, err := engine.ComputeKHexB(client.A(), verifier)
	require.NoError(t, err)
	clientK, err := client.ComputeK(B, srp.ComputeX(out.Salt, "alice", "pw"))
	require.NoError(t, err)
	assert.Equal(t, serverK, clientK)
}

func TestRouter(t *testing.T) {
	webRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webRoot, "index.html"), []byte("<html></html>"), 0o600))

	st, err := store.New(memory.NewRepository(), nil, store.WithLogger(quietLogger))
	require.NoError(t, err)
	engine, err := srp.NewFromGroup(srp.RFC5054Group2048())
	require.NoError(t, err)
	signer, err := newSigner(serverConfig{}, quietLogger)
	require.NoError(t, err)
	defer signer.Destroy()
	dispatcher, err := newDispatcher(serverConfig{}, quietLogger)
	require.NoError(t, err)

	a := api.New(st, engine, signer, dispatcher, api.WithLogger(quietLogger))
	handler, err := newRouter(a, webRoot)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	for path, want := range map[string]string{
		"/health":    "OK",
		"/some/page": "<html></html>",
		"/":          "<html></html>",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	}

	// Unsigned API calls are refused.
	resp, err := http.Get(srv.URL + "/api/user")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOpenRepositoryBBolt(t *testing.T) {
	cfg := serverConfig{Storage: storageBBolt, DataDir: filepath.Join(t.TempDir(), "nested")}
	repo, closeRepo, err := openRepository(cfg)
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "brownie.db"))
	assert.NoError(t, closeRepo())
}
