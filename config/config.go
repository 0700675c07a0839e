package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	// Path is the data file location for the embedded bolt backend.
	Path string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// DropConfig holds the purchase engine tunables.
type DropConfig struct {
	// ExchangeRate converts the catalog base price (USD) to the charged
	// currency (JPY).
	ExchangeRate float64 `yaml:"exchange_rate" json:"exchange_rate"`
	// RateWindowSecs is the trailing window checked by the bot guard.
	RateWindowSecs int `yaml:"rate_window_secs" json:"rate_window_secs"`
	// MaxAttemptsPerWindow purchases per user inside the window; the
	// next attempt is rejected.
	MaxAttemptsPerWindow int `yaml:"max_attempts_per_window" json:"max_attempts_per_window"`
	// LockTimeoutSecs bounds how long a purchase may wait for the
	// per-sneaker row lock before failing.
	LockTimeoutSecs int `yaml:"lock_timeout_secs" json:"lock_timeout_secs"`
	// OrderRetentionDays controls the daily ledger prune job.
	OrderRetentionDays int `yaml:"order_retention_days" json:"order_retention_days"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system" json:"system"`
	Web      WebConfig  `yaml:"web" json:"web"`
	Database DBConfig   `yaml:"database" json:"database"`
	Logger   LogConfig  `yaml:"logger" json:"logger"`
	Drop     DropConfig `yaml:"drop" json:"drop"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "sneakerdrop",
			Location: "Asia/Tokyo",
			Workdir:  "/var/sneakerdrop",
			Debug:    true,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 1816,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "sneakerdrop",
			User:     "postgres",
			Passwd:   "",
			MaxConn:  100,
			IdleConn: 10,
			Path:     "/var/sneakerdrop/sneakerdrop.db",
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/sneakerdrop/sneakerdrop.log",
		},
		Drop: DropConfig{
			ExchangeRate:         150,
			RateWindowSecs:       60,
			MaxAttemptsPerWindow: 3,
			LockTimeoutSecs:      5,
			OrderRetentionDays:   90,
		},
	}
}

func setEnvValue(name string, val *string) {
	evalue := os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvIntValue(name string, val *int) {
	evalue := os.Getenv(name)
	if evalue != "" {
		*val = cast.ToInt(evalue)
	}
}

func setEnvBoolValue(name string, val *bool) {
	evalue := os.Getenv(name)
	if evalue != "" {
		*val = evalue == "true" || evalue == "1" || evalue == "on"
	}
}

// LoadConfig reads the YAML configuration file and applies environment
// variable overrides. A missing file falls back to defaults.
func LoadConfig(cfile string) *AppConfig {
	appconfig := DefaultAppConfig()
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err = yaml.Unmarshal(data, appconfig); err != nil {
				zap.S().Errorf("parse config %s error %s", cfile, err.Error())
			}
		}
	}

	setEnvValue("SNEAKERDROP_SYSTEM_WORKDIR", &appconfig.System.Workdir)
	setEnvBoolValue("SNEAKERDROP_SYSTEM_DEBUG", &appconfig.System.Debug)

	setEnvValue("SNEAKERDROP_WEB_HOST", &appconfig.Web.Host)
	setEnvIntValue("SNEAKERDROP_WEB_PORT", &appconfig.Web.Port)

	setEnvValue("SNEAKERDROP_DB_TYPE", &appconfig.Database.Type)
	setEnvValue("SNEAKERDROP_DB_HOST", &appconfig.Database.Host)
	setEnvIntValue("SNEAKERDROP_DB_PORT", &appconfig.Database.Port)
	setEnvValue("SNEAKERDROP_DB_NAME", &appconfig.Database.Name)
	setEnvValue("SNEAKERDROP_DB_USER", &appconfig.Database.User)
	setEnvValue("SNEAKERDROP_DB_PWD", &appconfig.Database.Passwd)
	setEnvValue("SNEAKERDROP_DB_PATH", &appconfig.Database.Path)

	setEnvValue("SNEAKERDROP_LOGGER_MODE", &appconfig.Logger.Mode)

	setEnvIntValue("SNEAKERDROP_DROP_RATE_WINDOW_SECS", &appconfig.Drop.RateWindowSecs)
	setEnvIntValue("SNEAKERDROP_DROP_MAX_ATTEMPTS", &appconfig.Drop.MaxAttemptsPerWindow)

	if appconfig.Logger.Filename == "" {
		appconfig.Logger.Filename = filepath.Join(appconfig.System.Workdir, "sneakerdrop.log")
	}

	return appconfig
}
