package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	imErrors "sudooom.im.typing/pkg/errors"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	User      UserConfig      `mapstructure:"user"`
	People    []PersonConfig  `mapstructure:"people"`
	Typing    TypingConfig    `mapstructure:"typing"`
	Timer     TimerConfig     `mapstructure:"timer"`
	Transport TransportConfig `mapstructure:"transport"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// UserConfig 本地会话用户
type UserConfig struct {
	ID       int64  `mapstructure:"id"`
	Email    string `mapstructure:"email"`
	FullName string `mapstructure:"full_name"`
}

// PersonConfig 通讯录条目
type PersonConfig struct {
	ID       int64  `mapstructure:"id"`
	Email    string `mapstructure:"email"`
	FullName string `mapstructure:"full_name"`
}

// TypingConfig 输入状态时间参数
type TypingConfig struct {
	StartedExpiryPeriod  time.Duration `mapstructure:"started_expiry_period"`
	StartedSendFrequency time.Duration `mapstructure:"started_send_frequency"`
	StoppedWaitPeriod    time.Duration `mapstructure:"stopped_wait_period"`
}

// TimerConfig 时间轮参数
type TimerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	SlotCount    int           `mapstructure:"slot_count"`
	WorkerCount  int           `mapstructure:"worker_count"`
}

// TransportConfig 上行通知通道
type TransportConfig struct {
	Kind      string     `mapstructure:"kind"` // http | nats
	QueueSize int        `mapstructure:"queue_size"`
	HTTP      HTTPConfig `mapstructure:"http"`
}

type HTTPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	BufferSize    int           `mapstructure:"buffer_size"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	HealthAddr string `mapstructure:"health_addr"`
	Mode       string `mapstructure:"mode"`
	// AllowedOrigins 允许跨域访问本地接口的 UI 来源
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "typing-agent")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("typing.started_expiry_period", 15*time.Second)
	v.SetDefault("typing.started_send_frequency", 10*time.Second)
	v.SetDefault("typing.stopped_wait_period", 5*time.Second)

	v.SetDefault("timer.tick_interval", time.Millisecond)
	v.SetDefault("timer.slot_count", 1000)
	v.SetDefault("timer.worker_count", 4)

	v.SetDefault("transport.kind", TransportHTTP)
	v.SetDefault("transport.queue_size", 256)
	v.SetDefault("transport.http.timeout", 5*time.Second)

	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.buffer_size", 1024)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.health_addr", ":8091")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// Load 从指定路径加载配置
// 环境变量 TYPING_<SECTION>_<KEY> 覆盖文件中的值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("typing")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, imErrors.ErrInvalidConfig.Wrap(err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, imErrors.ErrInvalidConfig.Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.User.ID <= 0 {
		return imErrors.ErrInvalidConfig.Wrapf("user.id must be positive")
	}
	if c.Typing.StartedExpiryPeriod <= 0 || c.Typing.StartedSendFrequency <= 0 || c.Typing.StoppedWaitPeriod <= 0 {
		return imErrors.ErrInvalidConfig.Wrapf("typing periods must be positive")
	}
	if c.Timer.TickInterval <= 0 || c.Timer.SlotCount <= 0 {
		return imErrors.ErrInvalidConfig.Wrapf("timer.tick_interval and timer.slot_count must be positive")
	}

	switch c.Transport.Kind {
	case TransportHTTP:
		if c.Transport.HTTP.BaseURL == "" {
			return imErrors.ErrInvalidConfig.Wrapf("transport.http.base_url is required")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return imErrors.ErrInvalidConfig.Wrapf("nats.url is required for nats transport")
		}
	default:
		return imErrors.ErrInvalidConfig.Wrapf("unknown transport.kind %q", c.Transport.Kind)
	}

	return nil
}
