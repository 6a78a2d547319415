// =============================================================================
// Recibos Dispatcher - Configuration Module
// =============================================================================
//
// This module loads the dispatcher configuration.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults
//   2. Main config (config.yaml)
//   3. Environment variables, optionally loaded from a .env file
//
// The environment carries the secrets (EMAIL_PASSWORD) and lets an operator
// point a run at other directories without editing the YAML file.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nominas/recibos-dispatcher/internal/notify"
	"github.com/nominas/recibos-dispatcher/pkg/utils"
)

// =============================================================================
// ENVIRONMENT VARIABLES
// =============================================================================

const (
	EnvEmailSender   = "EMAIL_SENDER"
	EnvEmailPassword = "EMAIL_PASSWORD"
	EnvSMTPServer    = "SMTP_SERVER"
	EnvSMTPPort      = "SMTP_PORT"
	EnvXMLPath       = "XML_PATH"
	EnvPDFPath       = "PDF_PATH"
	EnvRosterFile    = "EXCEL_CORREOS"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// XMLDir holds the CFDI payroll XML files. Env: XML_PATH.
	XMLDir string `yaml:"xml_dir"`

	// PDFDir holds the PDF receipts, renamed in place. Env: PDF_PATH.
	PDFDir string `yaml:"pdf_dir"`

	// RosterFile is the employee directory (.xlsx, .xlsm or .csv).
	// Env: EXCEL_CORREOS.
	RosterFile string `yaml:"roster_file"`

	// ReportDir receives a text summary after each run. Empty disables it.
	ReportDir string `yaml:"report_dir"`

	// =========================================================================
	// COMPONENT SETTINGS
	// =========================================================================

	Roster RosterConfig `yaml:"roster"`
	PDF    PDFConfig    `yaml:"pdf"`
	Mail   MailConfig   `yaml:"mail"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel: "debug", "info", "warn" or "error". Default: "info".
	LogLevel string `yaml:"log_level"`

	// LogFormat: "console" or "json". Default: "console".
	LogFormat string `yaml:"log_format"`
}

// RosterConfig describes the layout of the roster file.
type RosterConfig struct {
	// Sheet selects the XLSX worksheet. Default: the first sheet.
	Sheet string `yaml:"sheet"`

	// NameColumn and EmailColumn are the header names. Default: Nombre, Correo.
	NameColumn  string `yaml:"name_column"`
	EmailColumn string `yaml:"email_column"`

	// Encoding of a CSV roster: "utf-8", "windows-1252" or "iso-8859-1".
	Encoding string `yaml:"encoding"`

	// Delimiter of a CSV roster. Default: ",".
	Delimiter string `yaml:"delimiter"`
}

// PDFConfig controls the receipt scan.
type PDFConfig struct {
	// DetectDuplicates logs every extra PDF containing the same CURP.
	DetectDuplicates bool `yaml:"detect_duplicates"`

	// MaxFileSize skips larger PDFs, in bytes. Default: 50 MB.
	MaxFileSize int64 `yaml:"max_file_size"`
}

// MailConfig selects and configures the notifier.
type MailConfig struct {
	// Transport: "smtp", "gmail" or "dry-run". Default: "smtp".
	Transport string `yaml:"transport"`

	// Sender is the From address and SMTP login. Env: EMAIL_SENDER.
	Sender string `yaml:"sender"`

	// Password is the SMTP password. Env: EMAIL_PASSWORD.
	Password string `yaml:"password"`

	// SMTPHost and SMTPPort. Env: SMTP_SERVER, SMTP_PORT.
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`

	// GmailCredentials and GmailToken are the OAuth2 files of the gmail
	// transport.
	GmailCredentials string `yaml:"gmail_credentials"`
	GmailToken       string `yaml:"gmail_token"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadEnvFile loads variables from a .env file without overriding variables
// already set. An empty path loads ./.env when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if !utils.FileExists(".env") {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadMainConfig loads the main configuration from a YAML file and applies
// environment overrides. A missing file is not an error: the defaults and
// the environment are used alone.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnvOverrides(&config, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides replaces settings with the non-empty variables found by
// lookup.
func applyEnvOverrides(config *MainConfig, lookup func(string) (string, bool)) error {
	overrides := []struct {
		name   string
		target *string
	}{
		{EnvEmailSender, &config.Mail.Sender},
		{EnvEmailPassword, &config.Mail.Password},
		{EnvSMTPServer, &config.Mail.SMTPHost},
		{EnvXMLPath, &config.XMLDir},
		{EnvPDFPath, &config.PDFDir},
		{EnvRosterFile, &config.RosterFile},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.name); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvSMTPPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSMTPPort, err)
		}
		config.Mail.SMTPPort = port
	}

	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.XMLDir == "" {
		config.XMLDir = "./xml"
	}
	if config.PDFDir == "" {
		config.PDFDir = "./pdf"
	}
	if config.RosterFile == "" {
		config.RosterFile = "./correos.xlsx"
	}
	if config.Roster.NameColumn == "" {
		config.Roster.NameColumn = "Nombre"
	}
	if config.Roster.EmailColumn == "" {
		config.Roster.EmailColumn = "Correo"
	}
	if config.Roster.Encoding == "" {
		config.Roster.Encoding = "utf-8"
	}
	if config.Roster.Delimiter == "" {
		config.Roster.Delimiter = ","
	}
	if config.PDF.MaxFileSize == 0 {
		config.PDF.MaxFileSize = 50 * 1024 * 1024
	}
	if config.Mail.Transport == "" {
		config.Mail.Transport = notify.TransportSMTP
	}
	if config.Mail.SMTPHost == "" {
		config.Mail.SMTPHost = notify.DefaultSMTPHost
	}
	if config.Mail.SMTPPort == 0 {
		config.Mail.SMTPPort = notify.DefaultSMTPPort
	}
	if config.Mail.GmailCredentials == "" {
		config.Mail.GmailCredentials = "./credentials.json"
	}
	if config.Mail.GmailToken == "" {
		config.Mail.GmailToken = "./token.json"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
}

// validateMainConfig checks the values that do not depend on the filesystem.
func validateMainConfig(config *MainConfig) error {
	switch config.Mail.Transport {
	case notify.TransportSMTP, notify.TransportGmail, notify.TransportDryRun:
	default:
		return fmt.Errorf("unknown mail transport %q", config.Mail.Transport)
	}

	if config.Mail.SMTPPort < 1 || config.Mail.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port out of range: %d", config.Mail.SMTPPort)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	switch config.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	if config.PDF.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be positive")
	}

	switch strings.ToLower(config.Roster.Delimiter) {
	case "tab", `\t`, "pipe", "semicolon":
	default:
		if len(config.Roster.Delimiter) != 1 {
			return fmt.Errorf("roster delimiter must be a single character, tab, pipe or semicolon")
		}
	}

	return nil
}

// ValidateForRun checks what a dispatch run needs beyond a well-formed
// configuration: existing directories and roster file, and mail
// credentials for the selected transport.
func (c *MainConfig) ValidateForRun() error {
	var errs []error

	fm := utils.NewFileManager(c.XMLDir, c.PDFDir, c.ReportDir)
	if err := fm.CheckDirectories(); err != nil {
		errs = append(errs, err)
	}
	if !utils.FileExists(c.RosterFile) {
		errs = append(errs, fmt.Errorf("roster file %s not found", c.RosterFile))
	}

	switch c.Mail.Transport {
	case notify.TransportSMTP:
		if c.Mail.Sender == "" || c.Mail.Password == "" {
			errs = append(errs, fmt.Errorf("smtp transport needs %s and %s", EnvEmailSender, EnvEmailPassword))
		}
	case notify.TransportGmail:
		if !utils.FileExists(c.Mail.GmailCredentials) {
			errs = append(errs, fmt.Errorf("gmail credentials %s not found", c.Mail.GmailCredentials))
		}
		if !utils.FileExists(c.Mail.GmailToken) {
			errs = append(errs, fmt.Errorf("gmail token %s not found", c.Mail.GmailToken))
		}
	}

	return errors.Join(errs...)
}
