package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database  `envPrefix:"DATABASE_"`
	RateLimit   RateLimit `envPrefix:"RATE_LIMIT_"`

	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Currency Currency `envPrefix:"CURRENCY_"`
}

type Razorpay struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.razorpay.com"`
	KeyID         string `env:"KEY_ID"`
	KeySecret     string `env:"KEY_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// Configured reports whether both halves of the API key pair are present.
func (r Razorpay) Configured() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

type Currency struct {
	Base        string             `env:"BASE" envDefault:"INR"`
	RatesURL    string             `env:"RATES_URL" envDefault:"https://open.er-api.com/v6/latest"`
	RatesTTL    time.Duration      `env:"RATES_TTL" envDefault:"1h"`
	StaticRates map[string]float64 `env:"STATIC_RATES" envDefault:"USD:0.012,GBP:0.0094,EUR:0.011,JPY:1.78,AUD:0.018"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql, postgres
	URL    string `env:"URL" envDefault:"gallery.db"`
}

type RateLimit struct {
	RPS   float64 `env:"RPS" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"20"`
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
