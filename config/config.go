package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Untis    UntisConfig    `mapstructure:"untis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Prefetch PrefetchConfig `mapstructure:"prefetch"`
	Prune    PruneConfig    `mapstructure:"prune"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret               string        `mapstructure:"jwt_secret"`
	AccessTokenTTL          time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDefault  time.Duration `mapstructure:"refresh_token_ttl_default"`
	RefreshTokenTTLRemember time.Duration `mapstructure:"refresh_token_ttl_remember_me"`
}

// UntisConfig 上游 WebUntis 服务配置
type UntisConfig struct {
	BaseURL   string        `mapstructure:"base_url"`   // 形如 https://xxx.webuntis.com
	Timeout   time.Duration `mapstructure:"timeout"`    // 单次 RPC 请求超时
	UserAgent string        `mapstructure:"user_agent"` // 部分实例要求非空 UA
}

// CacheConfig 课表快照缓存配置
type CacheConfig struct {
	TTL                time.Duration `mapstructure:"ttl"`                   // 快照新鲜度窗口
	MaxAge             time.Duration `mapstructure:"max_age"`               // 快照最大保留时长
	MaxHistoryPerRange int           `mapstructure:"max_history_per_range"` // 每个 (owner, range) 键保留的快照数
}

// PrefetchConfig 相邻周预取配置
type PrefetchConfig struct {
	QueueSize int           `mapstructure:"queue_size"` // 任务队列容量，满则丢弃
	Workers   int           `mapstructure:"workers"`    // 消费协程数
	Delay     time.Duration `mapstructure:"delay"`      // 出队后的启动延迟，避免与前台请求争抢
}

// PruneConfig 快照清理配置
type PruneConfig struct {
	Interval         time.Duration `mapstructure:"interval"`            // 两次清理之间的最小间隔
	SideRecordMaxAge time.Duration `mapstructure:"side_record_max_age"` // 作业/考试记录最大保留时长，0 表示不清理
}

// CryptoConfig 凭据加密配置
// keys 为版本号 → 32 字节 AES 密钥（hex 编码）的映射；
// active_key_version 指定新写入凭据使用的密钥版本，旧版本保留用于解密。
type CryptoConfig struct {
	ActiveKeyVersion int               `mapstructure:"active_key_version"`
	Keys             map[string]string `mapstructure:"keys"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "untis_pro")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Berlin")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl_default", "24h")
	v.SetDefault("auth.refresh_token_ttl_remember_me", "168h")

	v.SetDefault("untis.timeout", "15s")
	v.SetDefault("untis.user_agent", "untis-pro/1.0")

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_age", "1080h") // 45 天
	v.SetDefault("cache.max_history_per_range", 2)

	v.SetDefault("prefetch.queue_size", 64)
	v.SetDefault("prefetch.workers", 2)
	v.SetDefault("prefetch.delay", "25ms")

	v.SetDefault("prune.interval", "6h")
	v.SetDefault("prune.side_record_max_age", "0s") // 默认不清理作业/考试记录

	v.SetDefault("crypto.active_key_version", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
	v.SetEnvPrefix("UNTIS")
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

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Untis.BaseURL == "" {
		return fmt.Errorf("配置校验失败: untis.base_url 不能为空")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("配置校验失败: cache.ttl 必须为正")
	}
	if c.Cache.MaxHistoryPerRange < 1 {
		return fmt.Errorf("配置校验失败: cache.max_history_per_range 必须 >= 1")
	}
	if _, err := c.Crypto.ActiveKey(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// ActiveKey 返回当前写入版本的 AES 密钥
func (c *CryptoConfig) ActiveKey() ([]byte, error) {
	return c.Key(c.ActiveKeyVersion)
}

// Key 按版本号返回 AES 密钥（32 字节）
func (c *CryptoConfig) Key(version int) ([]byte, error) {
	raw, ok := c.Keys[fmt.Sprintf("%d", version)]
	if !ok {
		return nil, fmt.Errorf("crypto.keys 中缺少版本 %d 的密钥", version)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("版本 %d 的密钥不是有效的 hex: %w", version, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("版本 %d 的密钥长度必须为 32 字节, 实际 %d", version, len(key))
	}
	return key, nil
}

// [自证通过] config/config.go
