// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallbacks for send-email-message.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// dotEnvFile is loaded from the working directory when present.
const dotEnvFile = ".env"

const (
	defaultFromEmail     = "webmaster@localhost"
	defaultSubjectPrefix = "[send-email] "
	defaultSMTPPort      = 25
	defaultSMTPTimeout   = 30 * time.Second
)

// Group names understood by Lookup.
const (
	GroupAdmins   = "ADMINS"
	GroupManagers = "MANAGERS"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string         `yaml:"provider" validate:"omitempty,oneof=stdout smtp ses graph resend sendgrid"`
	Email    EmailConfig    `yaml:"email"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Graph    GraphConfig    `yaml:"graph"`
	SES      SESConfig      `yaml:"ses"`
	Resend   ResendConfig   `yaml:"resend"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EmailConfig holds message defaults and the named address groups.
type EmailConfig struct {
	DefaultFrom   string    `yaml:"default_from" validate:"required"`
	SubjectPrefix string    `yaml:"subject_prefix"`
	Admins        []Contact `yaml:"admins" validate:"dive"`
	Managers      []Contact `yaml:"managers" validate:"dive"`
}

// Contact is a named member of an address group.
type Contact struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address" validate:"required"`
}

// SMTPConfig holds outbound SMTP relay configuration.
type SMTPConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port" validate:"min=1,max=65535"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	SSL                bool          `yaml:"ssl"`
	StartTLS           bool          `yaml:"starttls"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CAFile             string        `yaml:"ca_file"`
	CertFile           string        `yaml:"cert_file" validate:"required_with=KeyFile"`
	KeyFile            string        `yaml:"key_file" validate:"required_with=CertFile"`
	Timeout            time.Duration `yaml:"timeout"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// ResendConfig holds Resend API configuration. APIKeyFile is read only when
// APIKey is empty.
type ResendConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first; variables already
// present in the environment win over it.
func Load() (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Lookup returns the addresses of the named group in configuration order.
// Unknown groups resolve to nothing.
func (c *Config) Lookup(group string) []string {
	var contacts []Contact
	switch group {
	case GroupAdmins:
		contacts = c.Email.Admins
	case GroupManagers:
		contacts = c.Email.Managers
	default:
		return nil
	}

	addrs := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		addrs = append(addrs, contact.Address)
	}
	return addrs
}

// DefaultFromAddress returns the sender used when none is given explicitly.
func (c *Config) DefaultFromAddress() string {
	return c.Email.DefaultFrom
}

// SubjectPrefix returns the string prepended to every subject.
func (c *Config) SubjectPrefix() string {
	return c.Email.SubjectPrefix
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SESConfigured returns true if an SES region is set. Credentials fall back
// to the default AWS chain and the sender to the message From.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// SMTPConfigured returns true if an SMTP host is set.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != ""
}

// ResendConfigured returns true if a Resend API key or key file is set.
func (c *Config) ResendConfigured() bool {
	return c.Resend.APIKey != "" || c.Resend.APIKeyFile != ""
}

// SendGridConfigured returns true if a SendGrid API key is set.
func (c *Config) SendGridConfigured() bool {
	return c.SendGrid.APIKey != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Email.DefaultFrom = defaultFromEmail
	c.Email.SubjectPrefix = defaultSubjectPrefix
	c.SMTP.Port = defaultSMTPPort
	c.SMTP.Timeout = defaultSMTPTimeout
	c.Logging.Level = "warn"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values, except
// EMAIL_SUBJECT_PREFIX, which may be set to the empty string.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("DEFAULT_FROM_EMAIL"); v != "" {
		c.Email.DefaultFrom = v
	}
	// An empty prefix is a valid setting.
	if v, ok := os.LookupEnv("EMAIL_SUBJECT_PREFIX"); ok {
		c.Email.SubjectPrefix = v
	}
	if v := os.Getenv("ADMINS"); v != "" {
		contacts, err := parseContacts(v)
		if err != nil {
			return fmt.Errorf("failed to parse ADMINS: %w", err)
		}
		c.Email.Admins = contacts
	}
	if v := os.Getenv("MANAGERS"); v != "" {
		contacts, err := parseContacts(v)
		if err != nil {
			return fmt.Errorf("failed to parse MANAGERS: %w", err)
		}
		c.Email.Managers = contacts
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.SSL = b
		}
	}
	if v := os.Getenv("SMTP_STARTTLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.StartTLS = b
		}
	}
	if v := os.Getenv("SMTP_INSECURE_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.InsecureSkipVerify = b
		}
	}
	if v := os.Getenv("SMTP_CA_FILE"); v != "" {
		c.SMTP.CAFile = v
	}
	if v := os.Getenv("SMTP_CERT_FILE"); v != "" {
		c.SMTP.CertFile = v
	}
	if v := os.Getenv("SMTP_KEY_FILE"); v != "" {
		c.SMTP.KeyFile = v
	}
	if v := os.Getenv("SMTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SMTP.Timeout = d
		}
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_API_KEY_FILE"); v != "" {
		c.Resend.APIKeyFile = v
	}

	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		c.SendGrid.APIKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}

// parseContacts parses an RFC 5322 address list such as
// "Root <root@example.com>, ops@example.com".
func parseContacts(list string) ([]Contact, error) {
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, err
	}

	contacts := make([]Contact, 0, len(addrs))
	for _, a := range addrs {
		contacts = append(contacts, Contact{Name: a.Name, Address: a.Address})
	}
	return contacts, nil
}

// loadDotEnv applies variables from path to the process environment without
// overriding ones that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
