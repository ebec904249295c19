package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	// Save original environment to restore later
	originalEnv := make(map[string]string)
	envVars := []string{
		"WATCHLENS_SERVER_PORT", "WATCHLENS_SERVER_READ_TIMEOUT", "WATCHLENS_SERVER_WRITE_TIMEOUT",
		"WATCHLENS_SECURITY_ALLOWED_ORIGINS", "WATCHLENS_SECURITY_ENABLE_CORS",
		"WATCHLENS_LOGGING_LEVEL", "WATCHLENS_LOGGING_FORMAT", "WATCHLENS_LOGGING_OUTPUT",
		"WATCHLENS_PATHS_DATA_DIR", "WATCHLENS_PATHS_WEB_DIR", "WATCHLENS_PATHS_LOGS_DIR",
		"WATCHLENS_WEBSOCKET_READ_BUFFER_SIZE", "WATCHLENS_WEBSOCKET_WRITE_BUFFER_SIZE",
		"WATCHLENS_BUILD_WORKERS", "WATCHLENS_BUILD_SHEET_TIMEOUT",
	}

	// Save original values
	for _, envVar := range envVars {
		originalEnv[envVar] = os.Getenv(envVar)
	}

	// Clean up environment variables
	defer func() {
		for _, envVar := range envVars {
			if val, exists := originalEnv[envVar]; exists && val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func()
		setupFile   func() string // returns temp file path
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			setupEnv: func() {
				for _, envVar := range envVars {
					os.Unsetenv(envVar)
				}
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, 15*time.Minute, cfg.Server.OperationTimeout)

				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, 50, cfg.Security.RateLimit.Burst)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "logs/watchlens.log", cfg.Logging.FilePath)
				assert.True(t, cfg.Logging.Development)

				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "web", cfg.Paths.WebDir)
				assert.Equal(t, "logs", cfg.Paths.LogsDir)

				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
				assert.Equal(t, 1024, cfg.WebSocket.WriteBufferSize)
				assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
				assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)

				assert.Equal(t, 0, cfg.Build.Workers)
				assert.Equal(t, 2*time.Minute, cfg.Build.SheetTimeout)
			},
		},
		{
			name: "custom environment variables",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SERVER_PORT", "9090")
				os.Setenv("WATCHLENS_SERVER_READ_TIMEOUT", "30s")
				os.Setenv("WATCHLENS_SECURITY_ALLOWED_ORIGINS", "http://example.com,https://example.com")
				os.Setenv("WATCHLENS_SECURITY_ENABLE_CORS", "false")
				os.Setenv("WATCHLENS_LOGGING_LEVEL", "debug")
				os.Setenv("WATCHLENS_LOGGING_FORMAT", "text")
				os.Setenv("WATCHLENS_WEBSOCKET_READ_BUFFER_SIZE", "2048")
				os.Setenv("WATCHLENS_BUILD_WORKERS", "8")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.False(t, cfg.Security.EnableCORS)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format) // validate() should force this to json
				assert.Equal(t, 2048, cfg.WebSocket.ReadBufferSize)
				assert.Equal(t, 8, cfg.Build.Workers)
			},
		},
		{
			name: "invalid port number",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SERVER_PORT", "99999")
			},
			wantErr: true,
		},
		{
			name: "zero port number",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SERVER_PORT", "0")
			},
			wantErr: true,
		},
		{
			name: "negative timeout",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SERVER_READ_TIMEOUT", "-5s")
			},
			wantErr: true,
		},
		{
			name: "empty allowed origins",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SECURITY_ALLOWED_ORIGINS", "")
			},
			wantErr: true,
		},
		{
			name: "negative build workers",
			setupEnv: func() {
				os.Setenv("WATCHLENS_BUILD_WORKERS", "-1")
			},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			setupEnv: func() {
				os.Setenv("WATCHLENS_SERVER_PORT", "7070")
				os.Setenv("WATCHLENS_LOGGING_LEVEL", "warn")
			},
			setupFile: func() string {
				tempDir := t.TempDir()
				configFile := filepath.Join(tempDir, "config.yaml")
				configContent := `
server:
  port: 6060
  read_timeout: 20s
logging:
  level: error
  format: json
security:
  allowed_origins: ["http://file.example.com"]
`
				require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))
				// Change to temp directory so config file is found
				originalDir, _ := os.Getwd()
				os.Chdir(tempDir)
				t.Cleanup(func() { os.Chdir(originalDir) })
				return configFile
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				// Environment should override file
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment first
			for _, envVar := range envVars {
				os.Unsetenv(envVar)
			}

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			if tt.setupFile != nil {
				_ = tt.setupFile()
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

// TestLoadFromFile tests the loadFromFile function
func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "valid YAML config",
			fileContent: `
server:
  port: 9000
  read_timeout: 25s
security:
  allowed_origins: ["http://test.com"]
  enable_cors: false
logging:
  level: debug
build:
  workers: 2
  sheet_timeout: 90s
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 25*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://test.com"}, cfg.Security.AllowedOrigins)
				assert.False(t, cfg.Security.EnableCORS)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 2, cfg.Build.Workers)
				assert.Equal(t, 90*time.Second, cfg.Build.SheetTimeout)
			},
		},
		{
			name:        "invalid YAML syntax",
			fileContent: "server:\n  port: [not a number",
			wantErr:     true,
		},
		{
			name:        "empty file",
			fileContent: "",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.Server.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configFile := filepath.Join(tempDir, "config.yaml")
			require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))

			cfg, err := loadFromFile(configFile)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := loadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

// TestMergeConfigs tests env precedence over file values
func TestMergeConfigs(t *testing.T) {
	fileConfig := Config{}
	fileConfig.Server.Port = 6000
	fileConfig.Server.ReadTimeout = 20 * time.Second
	fileConfig.Server.WriteTimeout = 20 * time.Second
	fileConfig.Server.OperationTimeout = 1 * time.Hour
	fileConfig.Logging.Level = "error"
	fileConfig.Logging.FilePath = "logs/file.log"
	fileConfig.Build.Workers = 3

	t.Run("env zero values fall back to file", func(t *testing.T) {
		envConfig := Config{}
		merged := mergeConfigs(fileConfig, envConfig)

		assert.Equal(t, 6000, merged.Server.Port)
		assert.Equal(t, 20*time.Second, merged.Server.ReadTimeout)
		assert.Equal(t, 20*time.Second, merged.Server.WriteTimeout)
		assert.Equal(t, 1*time.Hour, merged.Server.OperationTimeout)
		assert.Equal(t, "error", merged.Logging.Level)
		assert.Equal(t, "logs/file.log", merged.Logging.FilePath)
		assert.Equal(t, 3, merged.Build.Workers)
	})

	t.Run("env values win over file", func(t *testing.T) {
		envConfig := Config{}
		envConfig.Server.Port = 7000
		envConfig.Logging.Level = "debug"
		envConfig.Build.Workers = 16

		merged := mergeConfigs(fileConfig, envConfig)

		assert.Equal(t, 7000, merged.Server.Port)
		assert.Equal(t, "debug", merged.Logging.Level)
		assert.Equal(t, 16, merged.Build.Workers)
	})
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(cfg *Config) {},
		},
		{
			name:    "port too large",
			modify:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "port negative",
			modify:  func(cfg *Config) { cfg.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero read timeout",
			modify:  func(cfg *Config) { cfg.Server.ReadTimeout = 0 },
			wantErr: "read timeout must be positive",
		},
		{
			name:    "zero write timeout",
			modify:  func(cfg *Config) { cfg.Server.WriteTimeout = 0 },
			wantErr: "write timeout must be positive",
		},
		{
			name:    "no allowed origins",
			modify:  func(cfg *Config) { cfg.Security.AllowedOrigins = nil },
			wantErr: "at least one allowed origin",
		},
		{
			name:    "negative build workers",
			modify:  func(cfg *Config) { cfg.Build.Workers = -4 },
			wantErr: "build workers must not be negative",
		},
		{
			name:   "text format coerced to json",
			modify: func(cfg *Config) { cfg.Logging.Format = "text" },
		},
		{
			name:   "bogus output coerced to both",
			modify: func(cfg *Config) { cfg.Logging.Output = "syslog" },
		},
		{
			name:   "empty file path gets default",
			modify: func(cfg *Config) { cfg.Logging.FilePath = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.validate()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			// Coercions applied by validate
			assert.Equal(t, "json", cfg.Logging.Format)
			assert.Contains(t, []string{"both", "file", "stdout"}, cfg.Logging.Output)
			assert.NotEmpty(t, cfg.Logging.FilePath)
		})
	}
}

// TestBuildWorkers tests effective worker count resolution
func TestBuildWorkers(t *testing.T) {
	cfg := Default()

	cfg.Build.Workers = 6
	assert.Equal(t, 6, cfg.BuildWorkers())

	cfg.Build.Workers = 0
	assert.Equal(t, runtime.NumCPU(), cfg.BuildWorkers())
}

// TestDefault tests the Default configuration factory
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Server.OperationTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, 2*time.Minute, cfg.Build.SheetTimeout)

	// Defaults must pass their own validation
	assert.NoError(t, cfg.validate())
}

// TestConfigPathMethods tests the resolved path getters
func TestConfigPathMethods(t *testing.T) {
	cfg := Default()

	dataDir := cfg.GetDataDir()
	assert.NotEmpty(t, dataDir)
	assert.True(t, filepath.IsAbs(dataDir))

	webDir := cfg.GetWebDir()
	assert.NotEmpty(t, webDir)
	assert.True(t, filepath.IsAbs(webDir))

	logsDir := cfg.GetLogsDir()
	assert.NotEmpty(t, logsDir)
	assert.True(t, filepath.IsAbs(logsDir))
}

// TestGetConfigFilePath tests config file discovery
func TestGetConfigFilePath(t *testing.T) {
	tempDir := t.TempDir()
	originalDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { os.Chdir(originalDir) })

	// No config file anywhere
	assert.Equal(t, "", getConfigFilePath())

	// config.yaml in working directory
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte("server:\n  port: 1234\n"), 0644))
	assert.Equal(t, "config.yaml", getConfigFilePath())
}
