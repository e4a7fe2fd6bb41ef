package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"prod"`
	HTTPServer   `yaml:"http_server"`
	DBUser       string `yaml:"db_user" env:"DB_USER" env-required:"true"`
	DBPassword   string `yaml:"db_password" env:"DB_PASSWORD"`
	DBHost       string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort       int    `yaml:"db_port" env:"DB_PORT" env-default:"3306"`
	DBName       string `yaml:"db_name" env:"DB_NAME" env-required:"true"`
	ParseTime    bool   `yaml:"parse_time" env-default:"true"`
	ErrorLogPath string `yaml:"error_log_path" env:"ERROR_LOG_PATH" env-default:"errors.log"`
	LinesPath    string `yaml:"lines_path" env:"LINES_PATH"`

	AllowedOrigins []string `yaml:"allowed_origins" env-default:"http://localhost:5173"`

	Precision  Precision  `yaml:"precision"`
	Allocation Allocation `yaml:"allocation"`
	Warehouses Warehouses `yaml:"warehouses"`
	Scan       Scan       `yaml:"scan"`
	Metrics    Metrics    `yaml:"metrics"`

	// Lines is loaded from LinesPath, not from the main file.
	Lines LineSettings `yaml:"-"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
}

type Precision struct {
	Decimals int32   `yaml:"decimals" env-default:"3"`
	Epsilon  float64 `yaml:"epsilon" env-default:"1e-9"`
}

type Allocation struct {
	// TransferKinds are the ledger kinds counted as "already moved" for an order.
	TransferKinds []string `yaml:"transfer_kinds" env-default:"transfer-to-staging,transfer-to-wip"`
	// Kind is the kind recorded for fan-out movements.
	Kind string `yaml:"kind" env-default:"transfer-to-staging"`
	// BatchSplit is "proportional" or "sequential".
	BatchSplit string `yaml:"batch_split" env-default:"proportional"`
	LeafOnly   bool   `yaml:"leaf_only" env-default:"true"`
}

type Warehouses struct {
	Default string `yaml:"default"`
	Scrap   string `yaml:"scrap"`
}

type Scan struct {
	ConsumeOnScan         bool          `yaml:"consume_on_scan" env-default:"true"`
	DuplicateTTL          time.Duration `yaml:"duplicate_ttl" env-default:"45s"`
	RequirePackagingInBOM bool          `yaml:"require_packaging_in_bom" env-default:"true"`
	BatchSpaceReplacement string        `yaml:"batch_space_replacement" env-default:"_"`
}

// Metrics guards /metrics with basic auth when Login is set.
type Metrics struct {
	Enabled  bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Login    string `yaml:"login" env:"METRICS_LOGIN"`
	Password string `yaml:"password" env:"METRICS_PASSWORD"`
}

func MustConfig() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	if cfg.LinesPath != "" {
		lines, err := LoadLines(cfg.LinesPath)
		if err != nil {
			log.Fatalf("cannot read line settings: %s", err)
		}
		cfg.Lines = lines
	}

	return &cfg
}

func (c Config) DSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = c.DBHost + ":" + strconv.Itoa(c.DBPort)
	dsn.DBName = c.DBName
	dsn.ParseTime = c.ParseTime
	return dsn.FormatDSN()
}

func (c Config) QuantityPrecision() quantity.Precision {
	return quantity.Precision{Decimals: c.Precision.Decimals, Epsilon: c.Precision.Epsilon}.Normalized()
}

func (c Config) TransferKinds() []storage.TransactionKind {
	kinds := make([]storage.TransactionKind, 0, len(c.Allocation.TransferKinds))
	for _, k := range c.Allocation.TransferKinds {
		kind := storage.TransactionKind(k)
		if kind.Valid() {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		kinds = []storage.TransactionKind{storage.KindTransferToStaging, storage.KindTransferToWIP}
	}
	return kinds
}

func (c Config) FanOutKind() storage.TransactionKind {
	kind := storage.TransactionKind(c.Allocation.Kind)
	if !kind.Valid() {
		return storage.KindTransferToStaging
	}
	return kind
}
