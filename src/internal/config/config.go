package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=settlement_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultListenAddr = ":3000"
const defaultHubURL = "ws://localhost:6000/ws"
const defaultBankCode = "B05"
const defaultBankName = "Coral Bank"

type Config struct {
	ListenAddr    string
	DatabaseDSN   string
	MigrationsDir string

	// Clearing hub connection identity.
	HubURL   string
	BankCode string
	BankName string
	HubToken string

	// Shared credential for hub-side operator callbacks (X-API-TOKEN).
	OperatorToken string

	JWTSecret        string
	JWTValidity      time.Duration
	EncryptionKeyHex string
	OTPValidity      time.Duration

	HubReconnectMin time.Duration
	HubReconnectMax time.Duration

	// Non-terminal transfers older than this are reported by the
	// stale-transfers listing for operator reconciliation.
	StaleTransferThreshold time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:             envOrDefault("LISTEN_ADDR", defaultListenAddr),
		DatabaseDSN:            normalizeConnectionString(envOrDefault("DATABASE_DSN", defaultConnectionString)),
		MigrationsDir:          filepath.Join("src", "migrations"),
		HubURL:                 envOrDefault("HUB_URL", defaultHubURL),
		BankCode:               envOrDefault("BANK_CODE", defaultBankCode),
		BankName:               envOrDefault("BANK_NAME", defaultBankName),
		HubToken:               strings.TrimSpace(os.Getenv("HUB_TOKEN")),
		OperatorToken:          strings.TrimSpace(os.Getenv("OPERATOR_TOKEN")),
		JWTSecret:              strings.TrimSpace(os.Getenv("JWT_SECRET")),
		EncryptionKeyHex:       strings.TrimSpace(os.Getenv("ENCRYPTION_KEY")),
		JWTValidity:            durationOrDefault("JWT_VALIDITY", 30*time.Minute),
		OTPValidity:            durationOrDefault("OTP_VALIDITY", 5*time.Minute),
		HubReconnectMin:        durationOrDefault("HUB_RECONNECT_MIN", time.Second),
		HubReconnectMax:        durationOrDefault("HUB_RECONNECT_MAX", 30*time.Second),
		StaleTransferThreshold: durationOrDefault("STALE_TRANSFER_THRESHOLD", 15*time.Minute),
	}

	if cfg.HubToken == "" {
		return Config{}, fmt.Errorf("HUB_TOKEN is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.EncryptionKeyHex) != 64 {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(name string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
