package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port             string
	ConsulAddress    string
	ServiceName      string
	ServiceID        string
	ServiceAddress   string
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQPort     string
	JWTSecret        string
	DefaultLevelName string
	PageSize         int
}

func init() {
	ServiceConfig = New()
}

var ServiceConfig *Config

func New() *Config {
	page_size_str := getEnv("LIST_PAGE_SIZE", "30")
	page_size, _ := strconv.Atoi(page_size_str)

	return &Config{
		Port:             getEnv("PORT", "9200"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", ""),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", ""),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", ""),
		ConsulAddress:    "consul-server:" + getEnv("CONSUL_PORT", "8500"),
		ServiceName:      getEnv("ACCESS_SERVICE_NAME", "access-service"),
		ServiceID:        getEnv("ACCESS_SERVICE_NAME", "access-service") + "-" + getEnv("ACCESS_HOSTNAME", "1"),
		ServiceAddress:   getEnv("ACCESS_SERVICE_ADDRESS", "access-service"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DefaultLevelName: getEnv("DEFAULT_LEVEL_NAME", "member"),
		PageSize:         page_size,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Error Retriving ENV: %s not exist", key)
	return fallback
}
