// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RabbitMQURL             string `yaml:"rabbitmq_url"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RevenueCat              `yaml:"revenuecat"`
	TrialRules              `yaml:"trial_rules"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// RevenueCat структура для настройки клиента биллинг-провайдера
type RevenueCat struct {
	APIURL        string        `yaml:"api_url" env-default:"https://api.revenuecat.com/v1"`
	APIKey        string        `yaml:"api_key"`
	EntitlementID string        `yaml:"entitlement_id" env-default:"premium"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

// TrialRules структура с бизнес-правилами триалов и кеширования статуса.
// Значения по умолчанию соответствуют текущей продуктовой конфигурации:
// 20 дней начального триала, продление на 10, окно продления — последние 5 дней.
type TrialRules struct {
	InitialTrialLengthDays int           `yaml:"initial_trial_length_days" env-default:"20"`
	ExtendedTrialDays      int           `yaml:"extended_trial_days" env-default:"10"`
	ExtensionWindowDays    int           `yaml:"extension_window_days" env-default:"5"`
	PromoTrialDays         int           `yaml:"promo_trial_days" env-default:"20"`
	CacheValidity          time.Duration `yaml:"cache_validity" env-default:"2m"`
	AnnualSKUSuffix        string        `yaml:"annual_sku_suffix" env-default:"annual"`
	MonthlyProductID       string        `yaml:"monthly_product_id" env-default:"platemate_premium_monthly"`
	AnnualProductID        string        `yaml:"annual_product_id" env-default:"platemate_premium_annual"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной окружения CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RabbitMQURL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RevenueCat:\n"+
			"  APIURL: %s\n"+
			"  EntitlementID: %s\n"+
			"  Timeout: %s\n"+
			"TrialRules:\n"+
			"  InitialTrialLengthDays: %d\n"+
			"  ExtendedTrialDays: %d\n"+
			"  ExtensionWindowDays: %d\n"+
			"  PromoTrialDays: %d\n"+
			"  CacheValidity: %s\n"+
			"  AnnualSKUSuffix: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.RabbitMQURL,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.APIURL,
		c.EntitlementID,
		c.RevenueCat.Timeout,
		c.InitialTrialLengthDays,
		c.ExtendedTrialDays,
		c.ExtensionWindowDays,
		c.PromoTrialDays,
		c.CacheValidity,
		c.AnnualSKUSuffix,
	)
}
