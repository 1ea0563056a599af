package config

import (
	"fmt"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Backend  Backend  `envPrefix:"BACKEND_"`
	Database Database `envPrefix:"DATABASE_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

type Backend struct {
	APIURL  string        `env:"API_URL" envDefault:"http://localhost:5000/api"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql
	URL    string `env:"URL" envDefault:"checkout.db"`
}

type Checkout struct {
	MerchantName string  `env:"MERCHANT_NAME" envDefault:"AutoMart"`
	LogoURL      string  `env:"LOGO_URL" envDefault:"/logo.png"`
	ThemeColor   string  `env:"THEME_COLOR" envDefault:"#7C3AED"`
	ScriptURL    string  `env:"SCRIPT_URL" envDefault:"https://checkout.razorpay.com/v1/checkout.js"`
	RateLimit    float64 `env:"RATE_LIMIT" envDefault:"20"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

func (c *Config) Validate() error {
	if c.Backend.APIURL == "" {
		return fmt.Errorf("BACKEND_API_URL is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) Addr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}
