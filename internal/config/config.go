package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	WebSocket WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	// URL: полная строка подключения (postgres://...)
	URL string `mapstructure:"url"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах).
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// SessionConfig содержит настройки сессионных токенов
type SessionConfig struct {
	// Secret: ключ подписи сессионных токенов. Обязателен.
	Secret string `mapstructure:"secret"`

	// ExpirationHrs: время жизни токена в часах
	ExpirationHrs int `mapstructure:"expirationHrs"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	Limits LimitsConfig
}

// LimitsConfig содержит настройки ограничений соединений
type LimitsConfig struct {
	// MaxMessageSize: максимальный размер входящего кадра в байтах
	MaxMessageSize int
	// MaxConnectionsPerUser: число одновременных соединений одного пользователя
	MaxConnectionsPerUser int
	// MessagesPerSecond: лимит входящих кадров на соединение
	MessagesPerSecond int
	// WriteWait: таймаут записи в сокет (секунды)
	WriteWait int
	// PongWait: таймаут ожидания pong (секунды)
	PongWait int
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "3001")
	vip.SetDefault("session.expirationHrs", 24)
	vip.SetDefault("websocket.limits.maxmessagesize", 1024)
	vip.SetDefault("websocket.limits.maxconnectionsperuser", 3)
	vip.SetDefault("websocket.limits.messagespersecond", 10)
	vip.SetDefault("websocket.limits.writewait", 10)
	vip.SetDefault("websocket.limits.pongwait", 60)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "PORT")
	vip.BindEnv("database.url", "DATABASE_URL")
	vip.BindEnv("session.secret", "SESSION_SECRET")
	vip.BindEnv("session.expirationHrs", "SESSION_EXPIRATIONHRS")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// 3. Путь к файлу конфигурации (не страшно, если файла нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database URL Set: %t", cfg.Database.URL != "")
		log.Printf("Session Secret Set: %t", cfg.Session.Secret != "")
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка обязательных параметров. Падаем на старте, а не на первом запросе.
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required in config (check DATABASE_URL env var)")
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is required in config (check SESSION_SECRET env var)")
	}

	return &cfg, nil
}
