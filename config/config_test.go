package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		MLSub: MLSubConfig{
			URL:      "https://rec.mlsub.net/api/user",
			Username: "alice",
			Password: "hunter2",
			Timeout:  30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "missing url",
			mutate:  func(cfg *Config) { cfg.MLSub.URL = "" },
			wantErr: true,
		},
		{
			name:    "missing username",
			mutate:  func(cfg *Config) { cfg.MLSub.Username = "" },
			wantErr: true,
		},
		{
			name:    "missing password",
			mutate:  func(cfg *Config) { cfg.MLSub.Password = "" },
			wantErr: true,
		},
		{
			name:    "placeholder password",
			mutate:  func(cfg *Config) { cfg.MLSub.Password = "your-password-here" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(cfg *Config) { cfg.MLSub.Timeout = -1 },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "debug level valid",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "debug" },
			wantErr: false,
		},
		{
			name:    "invalid logging format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `mlsub:
  username: alice
  password: hunter2
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MLSub.Username != "alice" {
		t.Errorf("username = %q, want alice", cfg.MLSub.Username)
	}
	if cfg.MLSub.URL == "" {
		t.Error("url default not applied")
	}
	if cfg.MLSub.Timeout != 30 {
		t.Errorf("timeout default = %d, want 30", cfg.MLSub.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
