package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	SenderEmail      string `mapstructure:"sender_email"`
	SharedFolderName string `mapstructure:"shared_folder_name"`
	DownloadFolder   string `mapstructure:"download_folder"`
	// ExpectedDay uses 0=Monday ... 6=Sunday.
	ExpectedDay          int    `mapstructure:"expected_day"`
	NotificationEmail    string `mapstructure:"notification_email"`
	SMTPServer           string `mapstructure:"smtp_server"`
	SMTPPort             int    `mapstructure:"smtp_port"`
	SMTPUsername         string `mapstructure:"smtp_username"`
	SMTPPassword         string `mapstructure:"smtp_password"`
	CheckIntervalMinutes int    `mapstructure:"check_interval_minutes"`
	ProcessedEmailsFile  string `mapstructure:"processed_emails_file"`

	IMAPServer   string `mapstructure:"imap_server"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUsername string `mapstructure:"imap_username"`
	IMAPPassword string `mapstructure:"imap_password"`

	LedgerBackend        string `mapstructure:"ledger_backend"`
	RedisURL             string `mapstructure:"redis_url"`
	StatusAddr           string `mapstructure:"status_addr"`
	LogFile              string `mapstructure:"log_file"`
	ErrorCooldownMinutes int    `mapstructure:"error_cooldown_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sender_email", "ir@romspen.com")
	v.SetDefault("shared_folder_name", "INBOX")
	v.SetDefault("download_folder", "downloads")
	v.SetDefault("expected_day", 1)
	v.SetDefault("notification_email", "")
	v.SetDefault("smtp_server", "localhost")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("check_interval_minutes", 30)
	v.SetDefault("processed_emails_file", "processed_emails.txt")
	v.SetDefault("imap_server", "localhost")
	v.SetDefault("imap_port", 993)
	v.SetDefault("imap_username", "")
	v.SetDefault("imap_password", "")
	v.SetDefault("ledger_backend", "file")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("status_addr", "")
	v.SetDefault("log_file", "emaildownloader.log")
	v.SetDefault("error_cooldown_minutes", 120)
}

// Load reads the YAML config at path. A missing file is written out with
// defaults and is not an error; a malformed file logs a warning and the
// whole config falls back to defaults. Load never fails the process over
// config contents.
func Load(path string) *Config {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) || isNotFound(err) {
			if werr := v.SafeWriteConfigAs(path); werr != nil {
				log.Printf("Could not write default config %s: %v", path, werr)
			} else {
				log.Printf("Wrote default config to %s", path)
			}
		} else {
			log.Printf("Config %s malformed, using defaults: %v", path, err)
			v = viper.New()
			setDefaults(v)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		log.Printf("Config %s does not map onto known options, using defaults: %v", path, err)
		fresh := viper.New()
		setDefaults(fresh)
		cfg = &Config{}
		_ = fresh.Unmarshal(cfg)
	}

	cfg.validate()
	return cfg
}

// validate repairs out-of-range values instead of failing, logging each fix.
func (c *Config) validate() {
	if c.ExpectedDay < 0 || c.ExpectedDay > 6 {
		log.Printf("expected_day %d out of range [0,6], using 1 (Tuesday)", c.ExpectedDay)
		c.ExpectedDay = 1
	}
	if c.CheckIntervalMinutes <= 0 {
		log.Printf("check_interval_minutes %d must be positive, using 30", c.CheckIntervalMinutes)
		c.CheckIntervalMinutes = 30
	}
	if c.ErrorCooldownMinutes <= c.CheckIntervalMinutes {
		// The cooldown exists to stop tight error loops; it has to exceed
		// the normal interval to mean anything.
		c.ErrorCooldownMinutes = 2 * c.CheckIntervalMinutes
	}
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	if perr, ok := err.(*os.PathError); ok {
		return os.IsNotExist(perr)
	}
	return false
}

// SMTPAddr is the host:port the notifier dials.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPServer, c.SMTPPort)
}
