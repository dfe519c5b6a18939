// Пакет config — загрузка и валидация конфигурации File Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Module.
// Конструируется один раз при старте процесса и передаётся явно
// во все сервисы (никаких глобальных синглтонов).
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Пользователь PostgreSQL
	DBUser string
	// Пароль PostgreSQL
	DBPassword string
	// Имя базы данных
	DBName string
	// Режим SSL (disable, require, verify-full)
	DBSSLMode string

	// --- JWT / JWKS ---

	// URL JWKS endpoint identity provider (обязательный)
	JWKSURL string
	// Путь к CA-сертификату для TLS JWKS (опционально)
	JWKSCACertPath string
	// Ожидаемый issuer JWT (пустой — не проверяется)
	JWTIssuer string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Объектное хранилище (S3-совместимое) ---

	// Endpoint S3-совместимого хранилища (обязательный)
	S3Endpoint string
	// Регион (для MinIO — любой непустой)
	S3Region string
	// Access key (обязательный)
	S3AccessKey string
	// Secret key (обязательный)
	S3SecretKey string
	// Имя бакета документов
	S3Bucket string
	// Path-style адресация (true для MinIO)
	S3UsePathStyle bool
	// Путь health endpoint хранилища (для мониторинга зависимостей)
	S3HealthPath string

	// --- Файловый pipeline ---

	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64
	// Разрешённые расширения файлов (без точки, нижний регистр)
	AllowedExtensions []string
	// TTL подписанной ссылки по умолчанию
	SignedURLTTL time.Duration

	// --- Кэш метаданных ---

	// Максимальное количество записей LRU-кэша
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Фоновая сверка (reconciliation) ---

	// Интервал сверки хранилища и базы метаданных (0 — отключена)
	ReconcileInterval time.Duration

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Помечать зависимости лейблом isentry=yes
	DephealthIsEntry bool
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FM_PORT: %w", err)
	}

	// FM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("FM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("FM_LOG_LEVEL: %w", err)
	}

	// FM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("FM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("FM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("FM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("FM_DB_HOST", "localhost")

	cfg.DBPort, err = getEnvInt("FM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FM_DB_PORT: %w", err)
	}

	cfg.DBUser, err = getEnvRequired("FM_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("FM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBName, err = getEnvRequired("FM_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("FM_DB_SSLMODE", "disable")

	// --- JWT / JWKS ---

	cfg.JWKSURL, err = getEnvRequired("FM_JWKS_URL")
	if err != nil {
		return nil, err
	}

	cfg.JWKSCACertPath = getEnvDefault("FM_JWKS_CA_CERT", "")
	cfg.JWTIssuer = getEnvDefault("FM_JWT_ISSUER", "")

	cfg.JWKSClientTimeout, err = getEnvDuration("FM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("FM_JWKS_REFRESH_INTERVAL", 1*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("FM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_JWT_LEEWAY: %w", err)
	}

	// --- Объектное хранилище ---

	cfg.S3Endpoint, err = getEnvRequired("FM_S3_ENDPOINT")
	if err != nil {
		return nil, err
	}

	cfg.S3Region = getEnvDefault("FM_S3_REGION", "us-east-1")

	cfg.S3AccessKey, err = getEnvRequired("FM_S3_ACCESS_KEY")
	if err != nil {
		return nil, err
	}

	cfg.S3SecretKey, err = getEnvRequired("FM_S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}

	cfg.S3Bucket = getEnvDefault("FM_S3_BUCKET", "documents")

	cfg.S3UsePathStyle, err = getEnvBool("FM_S3_USE_PATH_STYLE", true)
	if err != nil {
		return nil, fmt.Errorf("FM_S3_USE_PATH_STYLE: %w", err)
	}

	cfg.S3HealthPath = getEnvDefault("FM_S3_HEALTH_PATH", "/minio/health/live")

	// --- Файловый pipeline ---

	// FM_MAX_FILE_SIZE — лимит размера файла в байтах (по умолчанию 5 MiB)
	cfg.MaxFileSize, err = getEnvInt64("FM_MAX_FILE_SIZE", 5*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("FM_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("FM_MAX_FILE_SIZE: значение должно быть > 0")
	}

	// FM_ALLOWED_EXTENSIONS — разрешённые расширения через запятую
	extList := getEnvDefault("FM_ALLOWED_EXTENSIONS", "pdf,doc,docx,jpg,png")
	cfg.AllowedExtensions = parseExtensions(extList)
	if len(cfg.AllowedExtensions) == 0 {
		return nil, fmt.Errorf("FM_ALLOWED_EXTENSIONS: пустой список расширений")
	}

	cfg.SignedURLTTL, err = getEnvDuration("FM_SIGNED_URL_TTL", 1*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FM_SIGNED_URL_TTL: %w", err)
	}

	// --- Кэш метаданных ---

	cfg.CacheSize, err = getEnvInt("FM_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("FM_CACHE_SIZE: %w", err)
	}

	cfg.CacheTTL, err = getEnvDuration("FM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FM_CACHE_TTL: %w", err)
	}

	// --- Фоновая сверка ---

	// FM_RECONCILE_INTERVAL — 0 отключает фоновую сверку
	cfg.ReconcileInterval, err = getEnvDuration("FM_RECONCILE_INTERVAL", 0)
	if err != nil {
		return nil, fmt.Errorf("FM_RECONCILE_INTERVAL: %w", err)
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("FM_DEPHEALTH_GROUP", "tenderhub")

	cfg.DephealthCheckInterval, err = getEnvDuration("FM_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthIsEntry, err = getEnvBool("FM_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("FM_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// IsAllowedExtension проверяет расширение файла по allow-list конфигурации.
// Расширение передаётся без точки, сравнение регистронезависимое.
func (c *Config) IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// parseExtensions разбирает список расширений из строки "pdf,doc,docx".
// Убирает точки, пробелы и приводит к нижнему регистру.
func parseExtensions(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		ext := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, ".")))
		if ext != "" {
			result = append(result, ext)
		}
	}
	return result
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
