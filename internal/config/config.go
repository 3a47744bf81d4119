package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server    ServerConfig    `validate:"required"`
	Storage   StorageConfig   `validate:"required"`
	Workbook  WorkbookConfig  `validate:"required"`
	Billing   BillingConfig   `validate:"required"`
	Render    RenderConfig    `validate:"required"`
	Email     EmailConfig
	Retention RetentionConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type StorageConfig struct {
	// UploadsDir receives raw workbook uploads.
	UploadsDir string `mapstructure:"uploads_dir" validate:"required"`
	// OutputDir holds period-scoped PDF directories.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	// AssetsDir holds the invoice template, logo and QR images.
	AssetsDir string `mapstructure:"assets_dir" validate:"required"`
}

type WorkbookConfig struct {
	// SheetOffset selects the data sheet as the Nth sheet from the end of
	// the workbook's sheet list. Observed workbooks vary between 2 and 4,
	// so this is mandatory configuration, not a guess.
	SheetOffset int `mapstructure:"sheet_offset" validate:"required,min=1"`
	// UseDeposits enables the deposit lookup from the last sheet.
	UseDeposits bool `mapstructure:"use_deposits"`
}

type BillingConfig struct {
	WaterUnitPrice    float64 `mapstructure:"water_unit_price" validate:"required,gt=0"`
	ElectricUnitPrice float64 `mapstructure:"electric_unit_price" validate:"required,gt=0"`
	VATRate           float64 `mapstructure:"vat_rate" validate:"gte=0,lt=1"`
}

type RenderConfig struct {
	// ChromePath overrides browser discovery. Empty means PATH lookup,
	// falling back to a downloaded Chromium.
	ChromePath     string `mapstructure:"chrome_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,min=1"`
	NoSandbox      bool   `mapstructure:"no_sandbox"`
}

type EmailConfig struct {
	Enabled     bool
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
}

type RetentionConfig struct {
	// MaxAgeDays prunes uploads and period directories older than this.
	// Zero keeps everything.
	MaxAgeDays int `mapstructure:"max_age_days" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/invoicegen")

	v.SetEnvPrefix("INVOICEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":4000")
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.output_dir", "invoices")
	v.SetDefault("storage.assets_dir", "assets")
	v.SetDefault("workbook.use_deposits", true)
	v.SetDefault("billing.water_unit_price", 89)
	v.SetDefault("billing.electric_unit_price", 8)
	v.SetDefault("billing.vat_rate", 0.07)
	v.SetDefault("render.timeout_seconds", 30)
	v.SetDefault("retention.max_age_days", 0)
	v.SetDefault("logging.level", "info")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:   ServerConfig{Address: ":4000"},
		Storage:  StorageConfig{UploadsDir: "uploads", OutputDir: "invoices", AssetsDir: "assets"},
		Workbook: WorkbookConfig{SheetOffset: 3, UseDeposits: true},
		Billing:  BillingConfig{WaterUnitPrice: 89, ElectricUnitPrice: 8, VATRate: 0.07},
		Render:   RenderConfig{TimeoutSeconds: 30, NoSandbox: true},
		Logging:  LoggingConfig{Level: "debug"},
	}
}
