package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// PricingConfig drives the totals calculator. The promo product is the one
// catalog id whose line is charged a flat override instead of price*quantity,
// and whose presence also replaces the shipping fee with the same override.
type PricingConfig struct {
	PromoProductID  string  `mapstructure:"promo_product_id"`
	PromoOverride   float64 `mapstructure:"promo_override"`
	FlatShippingFee float64 `mapstructure:"flat_shipping_fee"`
	Currency        string  `mapstructure:"currency"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

type NotifyConfig struct {
	ResendAPIKey   string `mapstructure:"resend_api_key"`
	ResendBaseURL  string `mapstructure:"resend_base_url"`
	FromEmail      string `mapstructure:"from_email"`
	OwnerEmail     string `mapstructure:"owner_email"`
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
}

type CatalogConfig struct {
	Products []ProductConfig `mapstructure:"products"`
}

type ProductConfig struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	ImageURL    string  `mapstructure:"image_url"`
	Price       float64 `mapstructure:"price"`
	Description string  `mapstructure:"description"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("pricing.promo_product_id", "prod_1")
	v.SetDefault("pricing.promo_override", 1.00)
	v.SetDefault("pricing.flat_shipping_fee", 40.00)
	v.SetDefault("pricing.currency", "INR")
	v.SetDefault("razorpay.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("notify.resend_base_url", "https://api.resend.com")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Configured reports whether the payment gateway key pair is present. An
// unconfigured gateway blocks payment initiation; it never blocks startup.
func (c *RazorpayConfig) Configured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// EmailConfigured reports whether outbound email can be attempted. A missing
// value degrades to log-and-skip in the notification path.
func (c *NotifyConfig) EmailConfigured() bool {
	return c.ResendAPIKey != "" && c.FromEmail != "" && c.OwnerEmail != ""
}
