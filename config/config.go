package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot de pujas.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	API     APIConfig     `yaml:"api"`
	Chain   ChainConfig   `yaml:"chain"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla el matching y el envío de pujas.
type EngineConfig struct {
	AutoPauseIntervalSeconds int `yaml:"auto_pause_interval_seconds"`
	BidExpirySeconds         int `yaml:"bid_expiry_seconds"` // vigencia del makerDeadline
	SubmitTimeoutSeconds     int `yaml:"submit_timeout_seconds"`

	// Tamaños de los caches FIFO. 0 = default del paquete cache.
	MessageIDCache    int `yaml:"message_id_cache"`
	ProcessedBidCache int `yaml:"processed_bid_cache"`
	AuctionCache      int `yaml:"auction_cache"`
	NotificationCache int `yaml:"notification_cache"`
	AuditLogCapacity  int `yaml:"audit_log_capacity"`
}

// APIConfig contiene los endpoints externos. Vacío = adapter desactivado.
type APIConfig struct {
	RelayBase   string `yaml:"relay_base"`
	GraphQLURL  string `yaml:"graphql_url"`
	FeedWSURL   string `yaml:"feed_ws_url"`
	GeofenceURL string `yaml:"geofence_url"`
}

// ChainConfig describe el token de colateral y el dominio EIP-712.
type ChainConfig struct {
	RPCURL            string `yaml:"rpc_url"`
	ChainID           int64  `yaml:"chain_id"`
	CollateralToken   string `yaml:"collateral_token"`
	Spender           string `yaml:"spender"`
	Decimals          int32  `yaml:"decimals"`
	VerifyingContract string `yaml:"verifying_contract"`
	EIP712Name        string `yaml:"eip712_name"`
	EIP712Version     string `yaml:"eip712_version"`
	PrivateKey        string `yaml:"-"` // solo desde env, nunca desde YAML
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse decodifica YAML, aplica overrides de entorno y defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	return &cfg, nil
}

// AutoPauseInterval devuelve el intervalo del scheduler como time.Duration.
func (c *Config) AutoPauseInterval() time.Duration {
	return time.Duration(c.Engine.AutoPauseIntervalSeconds) * time.Second
}

// BidExpiry es la vigencia de cada puja firmada.
func (c *Config) BidExpiry() time.Duration {
	return time.Duration(c.Engine.BidExpirySeconds) * time.Second
}

// SubmitTimeout acota cada tarea de envío.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Engine.SubmitTimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AUTOBID_PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("AUTOBID_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("AUTOBID_CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("AUTOBID_CHAIN_ID %q: %w", v, err)
		}
		cfg.Chain.ChainID = id
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.AutoPauseIntervalSeconds <= 0 {
		cfg.Engine.AutoPauseIntervalSeconds = 5
	}
	if cfg.Engine.BidExpirySeconds <= 0 {
		cfg.Engine.BidExpirySeconds = 60
	}
	if cfg.Engine.SubmitTimeoutSeconds <= 0 {
		cfg.Engine.SubmitTimeoutSeconds = 30
	}
	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = 137 // Polygon
	}
	if cfg.Chain.Decimals <= 0 {
		cfg.Chain.Decimals = 6 // USDC
	}
	if cfg.Chain.EIP712Name == "" {
		cfg.Chain.EIP712Name = "AuctionBids"
	}
	if cfg.Chain.EIP712Version == "" {
		cfg.Chain.EIP712Version = "1"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "autobid.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
