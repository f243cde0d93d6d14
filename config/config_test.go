package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/billpay?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "billpay-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "REDIS_ADDR", "localhost:6380")
	setEnv(t, "MONNIFY_BASE_URL", "https://api.monnify.com")
	setEnv(t, "MONNIFY_HTTP_TIMEOUT_SECONDS", "20")
	setEnv(t, "VTPASS_USERNAME", "ops@billpay.test")
	setEnv(t, "BILLPAY_REQUERY_MAX_ATTEMPTS", "7")
	setEnv(t, "BILLPAY_REQUERY_INITIAL_DELAY_SECONDS", "3")
	setEnv(t, "BILLPAY_REQUERY_MAX_DELAY_SECONDS", "45")
	setEnv(t, "BILLPAY_PENDING_TIMEOUT_MINUTES", "11")
	setEnv(t, "BILLPAY_RECONCILE_STALE_AFTER_MINUTES", "13")
	setEnv(t, "BILLPAY_JOB_BATCH_SIZE", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "billpay-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Fatalf("unexpected redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Monnify.BaseURL != "https://api.monnify.com" {
		t.Fatalf("unexpected monnify base url: %s", cfg.Monnify.BaseURL)
	}
	if cfg.Monnify.HTTPTimeout != 20*time.Second {
		t.Fatalf("unexpected monnify timeout: %v", cfg.Monnify.HTTPTimeout)
	}
	if cfg.VTPass.Username != "ops@billpay.test" {
		t.Fatalf("unexpected vtpass username: %s", cfg.VTPass.Username)
	}
	if cfg.VTPass.BaseURL != "https://sandbox.vtpass.com/api" {
		t.Fatalf("unexpected vtpass base url default: %s", cfg.VTPass.BaseURL)
	}
	if cfg.Billpay.RequeryMaxAttempts != 7 {
		t.Fatalf("unexpected requery max attempts: %d", cfg.Billpay.RequeryMaxAttempts)
	}
	if cfg.Billpay.RequeryInitialDelay != 3*time.Second {
		t.Fatalf("unexpected requery initial delay: %v", cfg.Billpay.RequeryInitialDelay)
	}
	if cfg.Billpay.RequeryMaxDelay != 45*time.Second {
		t.Fatalf("unexpected requery max delay: %v", cfg.Billpay.RequeryMaxDelay)
	}
	if cfg.Billpay.PendingTimeout != 11*time.Minute {
		t.Fatalf("unexpected pending timeout: %v", cfg.Billpay.PendingTimeout)
	}
	if cfg.Billpay.ReconcileStaleAfter != 13*time.Minute {
		t.Fatalf("unexpected reconcile stale after: %v", cfg.Billpay.ReconcileStaleAfter)
	}
	if cfg.Billpay.JobBatchSize != 99 {
		t.Fatalf("unexpected job batch size: %d", cfg.Billpay.JobBatchSize)
	}
}
