package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	Stub    StubConfig    `yaml:"stub"`
}

// BackendConfig points the client at the REST API.
type BackendConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SessionConfig locates the credential store, the stand-in for browser
// local storage.
type SessionConfig struct {
	File string `yaml:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StubConfig configures the local development backend.
type StubConfig struct {
	Port             int         `yaml:"port"`
	JWTSecret        string      `yaml:"jwt_secret"`
	TokenExpireHours int         `yaml:"token_expire_hours"`
	Storage          string      `yaml:"storage"` // memory, minio
	Minio            MinioConfig `yaml:"minio"`
	Superadmin       SeedAdmin   `yaml:"superadmin"`
	Admins           []SeedAdmin `yaml:"admins"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// SeedAdmin is a staff account created at stub startup.
type SeedAdmin struct {
	Name     string `yaml:"nombre"`
	Username string `yaml:"usuario"`
	Password string `yaml:"contrasena"`
}

// Load reads the yaml config file. A missing file is not an error: the
// client runs fine on defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:5001"
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.Session.File == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Session.File = filepath.Join(home, ".proyecto-academia", "session.json")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Stub.Port == 0 {
		c.Stub.Port = 5001
	}
	if c.Stub.TokenExpireHours == 0 {
		c.Stub.TokenExpireHours = 12
	}
	if c.Stub.Storage == "" {
		c.Stub.Storage = "memory"
	}
	if c.Stub.Superadmin.Username == "" {
		c.Stub.Superadmin = SeedAdmin{Name: "Superadmin", Username: "superadmin", Password: "superadmin"}
	}
}

// applyEnv lets .env / environment values override the file; deployments
// configure the backend URL and JWT secret this way.
func (c *Config) applyEnv() {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		c.Session.File = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		c.Stub.JWTSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Stub.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
