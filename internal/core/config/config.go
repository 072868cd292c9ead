package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	MaxBodyBytes    int64
	CORSOrigins     []string `mapstructure:"corsOrigins"`
}

type AdminHTTP struct {
	Host string
	Port int
	Key  string
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	RefreshSecret     string
	Issuer            string
	AccessTokenTTLMin int
	RefreshTokenTTLH  int
	LeewaySec         int
	BcryptCost        int
}

type Store struct {
	Driver        string // file | memory | postgres | mysql | sqlite
	Path          string
	FailOnCorrupt bool
}

type RateLimit struct {
	Backend      string // memory | redis
	WindowMin    int
	Max          int
	AuthMax      int
	GlobalRPS    float64
	GlobalBurst  int
	MaxInFlight  int64
	RequestTOSec int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	Store     Store
	RateLimit RateLimit
	DB        DB
	Redis     Redis `mapstructure:"redis"`
}

func (c *Config) IsDevelopment() bool { return c.App.Env == EnvDevelopment }

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenTTLH) * time.Hour
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMin) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-backend")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3000)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.maxBodyBytes", 10<<20)
	v.SetDefault("app.http.corsOrigins", []string{"http://localhost:8080"})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 3001)
	v.SetDefault("app.admin.key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxSizeMB", 50)
	v.SetDefault("log.file.maxBackups", 5)
	v.SetDefault("log.file.maxAgeDays", 14)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("jwt.issuer", "auth-backend")
	v.SetDefault("jwt.accessTokenTTLMin", 24*60)
	v.SetDefault("jwt.refreshTokenTTLH", 7*24)
	v.SetDefault("jwt.leewaySec", 0)
	v.SetDefault("jwt.bcryptCost", 12)

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "./data/users.json")
	v.SetDefault("store.failOnCorrupt", false)

	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.windowMin", 15)
	v.SetDefault("rateLimit.max", 100)
	v.SetDefault("rateLimit.authMax", 5)
	v.SetDefault("rateLimit.globalRPS", 200)
	v.SetDefault("rateLimit.globalBurst", 400)
	v.SetDefault("rateLimit.maxInFlight", 300)
	v.SetDefault("rateLimit.requestTOSec", 10)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// bindLegacyEnv maps the plain variable names older deployments use onto
// config keys. APP_* variables still take precedence.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"app.http.port":     "PORT",
		"jwt.secret":        "JWT_SECRET",
		"jwt.refreshSecret": "JWT_REFRESH_SECRET",
		"app.env":           "NODE_ENV",
		"app.admin.key":     "ADMIN_KEY",
	}
	for key, env := range legacy {
		_ = v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		v.SetDefault("app.http.corsOrigins", []string{origin})
	}
}

// Load reads the YAML file at path (falling back to CONFIG_PATH, then
// ./configs/config.local.yaml). A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

var ErrMissingSecret = errors.New("config: jwt secret is required")

// Validate rejects configurations that would run with guessable secrets.
// The test environment is exempt so unit tests can use throwaway values.
func (c *Config) Validate() error {
	if c.App.Env != EnvTest {
		if c.JWT.Secret == "" {
			return fmt.Errorf("%w: set jwt.secret (APP_JWT_SECRET or JWT_SECRET)", ErrMissingSecret)
		}
		if c.JWT.RefreshSecret == "" {
			return fmt.Errorf("%w: set jwt.refreshSecret (APP_JWT_REFRESHSECRET or JWT_REFRESH_SECRET)", ErrMissingSecret)
		}
		if c.JWT.Secret == c.JWT.RefreshSecret {
			return errors.New("config: jwt.secret and jwt.refreshSecret must differ")
		}
	}
	if c.JWT.AccessTokenTTLMin <= 0 || c.JWT.RefreshTokenTTLH <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	return c.ValidateStore()
}

// ValidateStore checks only the storage and rate limit settings. Tools that
// never issue tokens use it instead of Validate.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			return errors.New("config: store.path is required for the file driver")
		}
	case "memory", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported rateLimit.backend %q", c.RateLimit.Backend)
	}
	return c.RateLimit.validate()
}

func (r RateLimit) validate() error {
	positive := []struct {
		key string
		val float64
	}{
		{"rateLimit.windowMin", float64(r.WindowMin)},
		{"rateLimit.max", float64(r.Max)},
		{"rateLimit.authMax", float64(r.AuthMax)},
		{"rateLimit.globalRPS", r.GlobalRPS},
		{"rateLimit.globalBurst", float64(r.GlobalBurst)},
		{"rateLimit.maxInFlight", float64(r.MaxInFlight)},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("config: %s must be positive, got %v", p.key, p.val)
		}
	}
	if r.RequestTOSec < 0 {
		return errors.New("config: rateLimit.requestTOSec must not be negative")
	}
	return nil
}
