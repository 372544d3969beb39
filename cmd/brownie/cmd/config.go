package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/andrewkuryan/brownie/api"
	"github.com/andrewkuryan/brownie/notify"
	"github.com/andrewkuryan/brownie/srp"
)

// Configuration keys. Nested keys map to BROWNIE_SRP_N and so on.
const (
	keyPort           = "port"
	keyStorage        = "storage"
	keyDataDir        = "data-dir"
	keyDataKey        = "data-key"
	keyWebRoot        = "web-root"
	keyTempSessionTTL = "temp-session-ttl"
	keyAllowedOrigins = "allowed-origins"
	keyLogLevel       = "log-level"
	keyTLSCert        = "tls-cert"
	keyTLSKey         = "tls-key"

	keySRPN       = "srp.n"
	keySRPNBitLen = "srp.n-bit-len"
	keySRPG       = "srp.g"

	keyPrivateKey = "ecdsa.private-key"

	keySMTPServer      = "smtp.server"
	keySMTPPort        = "smtp.port"
	keySMTPUsername    = "smtp.username"
	keySMTPPassword    = "smtp.password"
	keySMTPSenderName  = "smtp.sender-name"
	keySMTPSenderEmail = "smtp.sender-email"

	keyTelegramToken = "telegram.bot-token"
)

const (
	storageMemory = "memory"
	storageBBolt  = "bbolt"

	minDataKeyLen = 16
)

var errInvalidConfig = errors.New("invalid configuration")

type serverConfig struct {
	Port           int
	Storage        string
	DataDir        string
	DataKey        []byte
	WebRoot        string
	TempSessionTTL time.Duration
	AllowedOrigins []string
	LogLevel       slog.Level
	TLSCert        string
	TLSKey         string

	SRP        srp.Group
	PrivateKey string

	SMTP          notify.SMTPConfig
	TelegramToken string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, 8080)
	v.SetDefault(keyStorage, storageMemory)
	v.SetDefault(keyDataDir, "./data")
	v.SetDefault(keyTempSessionTTL, api.DefaultTempSessionTTL)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keySMTPPort, 465)
}

func loadServerConfig(v *viper.Viper) (serverConfig, error) {
	setDefaults(v)
	cfg := serverConfig{
		Port:           v.GetInt(keyPort),
		Storage:        v.GetString(keyStorage),
		DataDir:        v.GetString(keyDataDir),
		WebRoot:        v.GetString(keyWebRoot),
		TempSessionTTL: v.GetDuration(keyTempSessionTTL),
		AllowedOrigins: v.GetStringSlice(keyAllowedOrigins),
		TLSCert:        v.GetString(keyTLSCert),
		TLSKey:         v.GetString(keyTLSKey),
		PrivateKey:     v.GetString(keyPrivateKey),
		SMTP: notify.SMTPConfig{
			Server:      v.GetString(keySMTPServer),
			Port:        v.GetInt(keySMTPPort),
			Username:    v.GetString(keySMTPUsername),
			Password:    v.GetString(keySMTPPassword),
			SenderName:  v.GetString(keySMTPSenderName),
			SenderEmail: v.GetString(keySMTPSenderEmail),
		},
		TelegramToken: v.GetString(keyTelegramToken),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port %d: %w", cfg.Port, errInvalidConfig)
	}
	switch cfg.Storage {
	case storageMemory, storageBBolt:
	default:
		return cfg, fmt.Errorf("storage %q: %w", cfg.Storage, errInvalidConfig)
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return cfg, fmt.Errorf("tls-cert and tls-key must be set together: %w", errInvalidConfig)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return cfg, fmt.Errorf("log-level: %w", errInvalidConfig)
	}

	if raw := v.GetString(keyDataKey); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(key) < minDataKeyLen {
			return cfg, fmt.Errorf("data-key must be base64 of at least %d bytes: %w", minDataKeyLen, errInvalidConfig)
		}
		cfg.DataKey = key
	}

	group, err := srpGroup(v)
	if err != nil {
		return cfg, err
	}
	cfg.SRP = group
	return cfg, nil
}

// srpGroup reads the SRP group. Without srp.n the RFC 5054 2048-bit group
// is used.
func srpGroup(v *viper.Viper) (srp.Group, error) {
	group := srp.RFC5054Group2048()
	if raw := v.GetString(keySRPN); raw != "" {
		n, err := srp.ParseHex(raw)
		if err != nil {
			return group, fmt.Errorf("srp.n: %w", err)
		}
		group.N = n
		group.NBitLen = n.BitLen()
	}
	if raw := v.GetString(keySRPG); raw != "" {
		g, err := srp.ParseHex(raw)
		if err != nil {
			return group, fmt.Errorf("srp.g: %w", err)
		}
		group.G = g
	}
	if bits := v.GetInt(keySRPNBitLen); bits > 0 {
		group.NBitLen = bits
	}
	return group, nil
}
