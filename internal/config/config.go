package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"kidzy-server/shared/utils"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Драйверы хранилищ.
const (
	DatabaseDriverFirestore = "firestore"
	DatabaseDriverPostgres  = "postgres"
	BlobDriverFirebase      = "firebase"
	BlobDriverLocal         = "local"
)

// Провайдеры текстовой модели.
const (
	TextProviderGemini = "gemini"
	TextProviderOpenAI = "openai"
	TextProviderOllama = "ollama"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogEncoding string `yaml:"log_encoding" env:"LOG_ENCODING" env-default:"json"`

	HTTP      HTTPConfig      `yaml:"http"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Blob      BlobConfig      `yaml:"blob"`
	AI        AIConfig        `yaml:"ai"`
	Story     StoryConfig     `yaml:"story"`
	Payment   PaymentConfig   `yaml:"payment"`
	Download  DownloadConfig  `yaml:"download"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// HTTPConfig - настройки HTTP-сервера API.
type HTTPConfig struct {
	Port               string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
	ReadTimeout        time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	// Генерация аватара синхронная и может занимать десятки секунд.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"180s"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"15728640"`
}

// FirebaseConfig - проект Firebase для Auth, Firestore и Storage.
type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"FIREBASE_CREDENTIALS_FILE"`
	StorageBucket   string `yaml:"storage_bucket" env:"FIREBASE_STORAGE_BUCKET"`
	// CheckRevoked - проверять отзыв токена после выхода (дополнительный запрос к Firebase).
	CheckRevoked bool `yaml:"check_revoked" env:"FIREBASE_CHECK_REVOKED" env-default:"true"`
}

// DatabaseConfig - документное хранилище библиотеки.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"firestore"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"kidzy"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

// DSN собирает строку подключения к PostgreSQL.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// MaskedDSN - DSN без пароля для логов.
func (c DatabaseConfig) MaskedDSN() string {
	return fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s", c.User, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig - хранилище сессий. Пустой Addr включает хранилище в памяти.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// RabbitMQConfig конфигурация для подключения к RabbitMQ.
// Пустой URL означает выполнение задач внутри процесса сервера.
type RabbitMQConfig struct {
	URL            string        `yaml:"url" env:"RABBITMQ_URL"`
	TaskQueue      string        `yaml:"task_queue" env:"RABBITMQ_TASK_QUEUE" env-default:"kidzy_generation_tasks"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"RABBITMQ_RECONNECT_DELAY" env-default:"5s"`
	MaxAttempts    int           `yaml:"max_attempts" env:"RABBITMQ_MAX_ATTEMPTS" env-default:"10"`
}

// BlobConfig - хранилище изображений.
type BlobConfig struct {
	Driver        string `yaml:"driver" env:"BLOB_DRIVER" env-default:"firebase"`
	LocalPath     string `yaml:"local_path" env:"BLOB_LOCAL_PATH" env-default:"./data/blobs"`
	PublicBaseURL string `yaml:"public_base_url" env:"BLOB_PUBLIC_BASE_URL" env-default:"http://localhost:8080/blobs"`
}

// AIConfig - генеративные модели.
type AIConfig struct {
	GeminiAPIKey      string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	TextProvider      string        `yaml:"text_provider" env:"AI_TEXT_PROVIDER" env-default:"gemini"`
	TextModel         string        `yaml:"text_model" env:"AI_TEXT_MODEL" env-default:"gemini-2.5-flash"`
	ImageModel        string        `yaml:"image_model" env:"AI_IMAGE_MODEL" env-default:"gemini-2.5-flash-image"`
	OpenAIAPIKey      string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OllamaURL         string        `yaml:"ollama_url" env:"OLLAMA_URL" env-default:"http://localhost:11434"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"AI_REQUESTS_PER_MINUTE" env-default:"30"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT" env-default:"120s"`
	MaxFetchBytes     int64         `yaml:"max_fetch_bytes" env:"AI_MAX_FETCH_BYTES" env-default:"20971520"`
}

// StoryConfig - параметры рабочего процесса книги и галереи.
type StoryConfig struct {
	PageDelay  time.Duration `yaml:"page_delay" env:"STORY_PAGE_DELAY" env-default:"1s"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"STORY_SESSION_TTL" env-default:"24h"`
	LockTTL    time.Duration `yaml:"lock_ttl" env:"STORY_LOCK_TTL" env-default:"15m"`
	// Workers - число одновременных задач генерации в процессе.
	Workers int `yaml:"workers" env:"GENERATION_WORKERS" env-default:"4"`
}

// PaymentConfig - Razorpay.
type PaymentConfig struct {
	RazorpayKeyID     string `yaml:"razorpay_key_id" env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `yaml:"razorpay_key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret     string `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	Currency          string `yaml:"currency" env:"PAYMENT_CURRENCY" env-default:"INR"`
}

// DownloadConfig - подписанные ссылки на скачивание.
type DownloadConfig struct {
	TicketSecret string        `yaml:"ticket_secret" env:"DOWNLOAD_TICKET_SECRET"`
	TicketTTL    time.Duration `yaml:"ticket_ttl" env:"DOWNLOAD_TICKET_TTL" env-default:"10m"`
}

// RateLimitConfig - лимит запросов на генерацию на пользователя.
type RateLimitConfig struct {
	GenerationPerMinute uint `yaml:"generation_per_minute" env:"RATE_LIMIT_GENERATION_PER_MINUTE" env-default:"10"`
}

// MetricsConfig - Prometheus Pushgateway для воркера.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
}

// Load загружает конфигурацию из переменных окружения и .env файла,
// подставляет секреты из Docker Secrets и проверяет согласованность.
func Load() (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	cfg.applySecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets() {
	c.AI.GeminiAPIKey = utils.SecretOrValue("gemini_api_key", c.AI.GeminiAPIKey)
	c.AI.OpenAIAPIKey = utils.SecretOrValue("openai_api_key", c.AI.OpenAIAPIKey)
	c.Database.Password = utils.SecretOrValue("db_password", c.Database.Password)
	c.Redis.Password = utils.SecretOrValue("redis_password", c.Redis.Password)
	c.Payment.RazorpayKeySecret = utils.SecretOrValue("razorpay_key_secret", c.Payment.RazorpayKeySecret)
	c.Payment.WebhookSecret = utils.SecretOrValue("razorpay_webhook_secret", c.Payment.WebhookSecret)
	c.Download.TicketSecret = utils.SecretOrValue("download_ticket_secret", c.Download.TicketSecret)
}

// Validate проверяет значения, которые cleanenv не может проверить сам.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case DatabaseDriverFirestore:
		if c.Firebase.ProjectID == "" {
			problems = append(problems, "FIREBASE_PROJECT_ID is required for firestore driver")
		}
	case DatabaseDriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Blob.Driver {
	case BlobDriverFirebase:
		if c.Firebase.StorageBucket == "" {
			problems = append(problems, "FIREBASE_STORAGE_BUCKET is required for firebase blob driver")
		}
	case BlobDriverLocal:
	default:
		problems = append(problems, fmt.Sprintf("unknown BLOB_DRIVER %q", c.Blob.Driver))
	}

	switch c.AI.TextProvider {
	case TextProviderGemini, TextProviderOllama:
	case TextProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required for openai text provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown AI_TEXT_PROVIDER %q", c.AI.TextProvider))
	}
	if c.AI.GeminiAPIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is required")
	}
	if c.Download.TicketSecret == "" {
		problems = append(problems, "DOWNLOAD_TICKET_SECRET is required")
	}
	if c.AI.RequestsPerMinute <= 0 {
		problems = append(problems, "AI_REQUESTS_PER_MINUTE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// NeedsFirebase - нужен ли Firebase App хранилищам. API-серверу он нужен всегда ради Auth.
func (c *Config) NeedsFirebase() bool {
	return c.Firebase.ProjectID != "" || c.Database.Driver == DatabaseDriverFirestore || c.Blob.Driver == BlobDriverFirebase
}

// InlineDispatch - выполнять ли задачи внутри процесса сервера.
func (c *Config) InlineDispatch() bool {
	return c.RabbitMQ.URL == ""
}

// IsDevelopment - режим разработки.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
