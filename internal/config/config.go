package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// EngineConfig содержит тюнинг адаптивного движка. Нулевые значения
// означают "использовать умолчания движка".
type EngineConfig struct {
	// MaxExposureRate — потолок доли предъявлений задания, (0, 1]
	MaxExposureRate float64 `mapstructure:"max_exposure_rate"`

	// TopicPenaltyWeight / ExposurePenaltyWeight — веса мягких штрафов
	// при скоринге кандидатов
	TopicPenaltyWeight    float64 `mapstructure:"topic_penalty_weight"`
	ExposurePenaltyWeight float64 `mapstructure:"exposure_penalty_weight"`

	// DefaultMaxQuestions / DefaultMinQuestions / DefaultSETarget —
	// умолчания конфигурации сессии, если клиент их не задал
	DefaultMaxQuestions int     `mapstructure:"default_max_questions"`
	DefaultMinQuestions int     `mapstructure:"default_min_questions"`
	DefaultSETarget     float64 `mapstructure:"default_se_target"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Engine
	vip.BindEnv("engine.max_exposure_rate", "ENGINE_MAX_EXPOSURE_RATE")
	vip.BindEnv("engine.topic_penalty_weight", "ENGINE_TOPIC_PENALTY_WEIGHT")
	vip.BindEnv("engine.exposure_penalty_weight", "ENGINE_EXPOSURE_PENALTY_WEIGHT")
	vip.BindEnv("engine.default_max_questions", "ENGINE_DEFAULT_MAX_QUESTIONS")
	vip.BindEnv("engine.default_min_questions", "ENGINE_DEFAULT_MIN_QUESTIONS")
	vip.BindEnv("engine.default_se_target", "ENGINE_DEFAULT_SE_TARGET")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// 2. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 3. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database SSLMode: %s", cfg.Database.SSLMode)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Engine Max Exposure Rate: %.2f", cfg.Engine.MaxExposureRate)
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	ginMode := vip.GetString("GIN_MODE")
	if ginMode != "debug" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
	}
	if cfg.Engine.MaxExposureRate < 0 || cfg.Engine.MaxExposureRate > 1 {
		return nil, fmt.Errorf("engine.max_exposure_rate must be in [0, 1], got %f", cfg.Engine.MaxExposureRate)
	}

	return &cfg, nil
}
