package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Queue transport selection. Memory runs both roles in one process, kafka
// is the deployed broker, disabled accepts sends as warn-and-drop no-ops
// for environments without a broker.
const (
	QueueTransportMemory   = "memory"
	QueueTransportKafka    = "kafka"
	QueueTransportDisabled = "disabled"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	QueueTransport  string
	KafkaBrokers    []string
	MaxRedeliveries int

	StorageBucket string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string
}

func Load() (Config, error) {
	// Missing .env is the normal deployed case.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "subroflow"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	transport := strings.TrimSpace(strings.ToLower(os.Getenv("QUEUE_TRANSPORT")))
	switch transport {
	case QueueTransportMemory, QueueTransportKafka, QueueTransportDisabled:
	default:
		transport = QueueTransportMemory
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	fromAddress := os.Getenv("EMAIL_FROM_ADDRESS")
	if fromAddress == "" {
		fromAddress = "noreply@subroflow.io"
	}
	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Subroflow Demand Management"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		QueueTransport:  transport,
		KafkaBrokers:    brokers,
		MaxRedeliveries: envInt("QUEUE_MAX_REDELIVERIES", 5),

		StorageBucket: os.Getenv("STORAGE_BUCKET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  fromAddress,
		FromName:     fromName,
	}, nil
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
