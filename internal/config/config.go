// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON file, a
// .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "720h" style values from both flags
// and the JSON config file.
type Duration struct {
	time.Duration
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Set(s)
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL Duration `json:"token_ttl"`

	// CatalogFile is an optional JSON file replacing the default catalog.
	CatalogFile string `json:"catalog_file"`

	// Timezone is the IANA location that decides the shop's calendar day.
	Timezone string `json:"shop_timezone"`

	// PhoneRegion is the region used to parse phone numbers without a
	// country code.
	PhoneRegion string `json:"phone_region"`

	// RedisAddress enables the Redis lock when set.
	RedisAddress string `json:"redis_address"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`

	// CORSOrigins is a comma-separated list of origins allowed to call the
	// API from a browser; "*" allows any origin.
	CORSOrigins string `json:"cors_origins"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	registerFlags(flag.CommandLine, options)
}

func registerFlags(fs *flag.FlagSet, o *Options) {
	o.TokenTTL = Duration{30 * 24 * time.Hour}

	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.JWTSecret, "s", "", "token signing secret")
	fs.Var(&o.TokenTTL, "ttl", "token lifetime")
	fs.StringVar(&o.CatalogFile, "catalog", "", "path to catalog JSON file")
	fs.StringVar(&o.Timezone, "tz", "Local", "shop timezone")
	fs.StringVar(&o.PhoneRegion, "region", "IN", "default phone region")
	fs.StringVar(&o.RedisAddress, "redis", "", "redis address for per-user locks")
	fs.StringVar(&o.TLSCert, "cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKey, "key", "", "TLS key file")
	fs.StringVar(&o.LogLevel, "l", "info", "log level")
	fs.StringVar(&o.CORSOrigins, "cors", "*", "comma-separated allowed CORS origins")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the config file and environment
// variables to set configuration values. Variables from a .env file in the
// working directory are loaded first and never override the real
// environment. It returns a pointer to the Options struct containing the
// parsed configuration values.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("error while reading .env file: %v", err)
	}

	flag.Parse()

	if err := options.resolve(os.Getenv); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// resolve applies the config file and environment overrides on top of the
// flag values, in that order.
func (o *Options) resolve(getenv func(string) string) error {
	if configPath := getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	overrides := map[string]*string{
		"SERVER_ADDRESS": &o.Port,
		"DATABASE_DSN":   &o.DatabaseDSN,
		"JWT_SECRET":     &o.JWTSecret,
		"CATALOG_FILE":   &o.CatalogFile,
		"SHOP_TIMEZONE":  &o.Timezone,
		"PHONE_REGION":   &o.PhoneRegion,
		"REDIS_ADDRESS":  &o.RedisAddress,
		"TLS_CERT":       &o.TLSCert,
		"TLS_KEY":        &o.TLSKey,
		"LOG_LEVEL":      &o.LogLevel,
		"CORS_ORIGINS":   &o.CORSOrigins,
	}
	for key, dst := range overrides {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		if err := o.TokenTTL.Set(v); err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
	}

	return o.validate()
}

func (o *Options) validate() error {
	if o.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if o.TokenTTL.Duration <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	}
	o.PhoneRegion = strings.ToUpper(o.PhoneRegion)
	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// AllowedOrigins returns CORSOrigins as a list without empty entries.
func (o *Options) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(o.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
