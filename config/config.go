package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Display DisplayConfig `mapstructure:"display"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StoreConfig 课表存储后端配置
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`    // postgres | memory
	FilePath string `mapstructure:"file_path"` // memory 后端的 JSON 持久化文件，空则纯内存
}

// DBConfig PostgreSQL 数据库配置
type DBConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	Timezone     string `mapstructure:"timezone"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（可选，Addr 为空时不启用）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 管理员认证配置
type AuthConfig struct {
	AdminUsername     string        `mapstructure:"admin_username"`
	AdminPassword     string        `mapstructure:"admin_password"`      // 明文（仅开发环境）
	AdminPasswordHash string        `mapstructure:"admin_password_hash"` // bcrypt 哈希，优先于明文
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	LoginRateLimit    int           `mapstructure:"login_rate_limit"` // 每分钟登录尝试上限
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IngestConfig 课表导入配置
type IngestConfig struct {
	SourceURL    string        `mapstructure:"source_url"`    // 定时同步的 CSV/XLSX 地址，空则不启用定时同步
	SyncInterval time.Duration `mapstructure:"sync_interval"` // 定时同步周期
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
	RoomPrefix   string        `mapstructure:"room_prefix"` // 教室编码前缀，用于纠正 sala/instrutor 列错位
	LockTTL      time.Duration `mapstructure:"lock_ttl"`    // Redis 导入锁有效期
}

// DisplayConfig 看板展示配置
type DisplayConfig struct {
	ItemsPerPage     int `mapstructure:"items_per_page"`
	MaxAnnouncements int `mapstructure:"max_announcements"`
}

// Load 从配置文件与环境变量加载配置并完整校验
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOffline 加载配置，只校验存储与导入相关项（命令行工具不需要认证配置）
func LoadOffline(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.max_body_bytes", 20<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.file_path", "db.json")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "painel_aulas")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Sao_Paulo")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.access_token_ttl", "12h")
	v.SetDefault("auth.login_rate_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ingest.source_url", "")
	v.SetDefault("ingest.sync_interval", "5m")
	v.SetDefault("ingest.fetch_timeout", "30s")
	v.SetDefault("ingest.max_file_bytes", 10<<20)
	v.SetDefault("ingest.room_prefix", "VTRIA-")
	v.SetDefault("ingest.lock_ttl", "2m")

	v.SetDefault("display.items_per_page", 8)
	v.SetDefault("display.max_announcements", 4)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PAINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" || len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("配置校验失败: auth.admin_password 与 auth.admin_password_hash 至少配置一项")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	return c.validateStore()
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("配置校验失败: store.driver 仅支持 postgres | memory，实际=%q", c.Store.Driver)
	}
	if c.Ingest.SourceURL != "" && c.Ingest.SyncInterval < time.Minute {
		return fmt.Errorf("配置校验失败: ingest.sync_interval 不能小于 1 分钟")
	}
	if c.Display.ItemsPerPage <= 0 {
		return fmt.Errorf("配置校验失败: display.items_per_page 必须大于 0")
	}
	return nil
}
