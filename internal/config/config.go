package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime option. Every key has a default: a missing
// environment variable or config file never fails startup.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Store    StoreConfig    `mapstructure:"store"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Seed     []SeedRecord   `mapstructure:"seed"`
}

type HTTPConfig struct {
	Addr         string   `mapstructure:"addr"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type StoreConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c StoreConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type PipelineConfig struct {
	// RecognitionInterval gates text recognition to every Nth frame;
	// detection still runs on every frame.
	RecognitionInterval int `mapstructure:"recognition_interval"`
	// GrantGracePeriod is how long the controller keeps the confirmation
	// visible after a grant before ending the session.
	GrantGracePeriod time.Duration `mapstructure:"grant_grace_period"`
	// InferenceTimeout bounds each detector/recognizer call; 0 disables.
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`
}

type VisionConfig struct {
	// PlateLabel is the detector class label tracked by the adapter.
	PlateLabel string `mapstructure:"plate_label"`
	// MinConfidence drops detections below this score before selection.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// InferenceURL is the base URL of the external model server.
	InferenceURL string `mapstructure:"inference_url"`
	// FrameDir, when set, replays frames from files instead of a camera.
	FrameDir string `mapstructure:"frame_dir"`
}

type SeedRecord struct {
	Plate      string `mapstructure:"plate"`
	HolderName string `mapstructure:"holder_name"`
}

// Load reads gate-controller.yaml from the working directory (optional) and
// the GATE_* environment (GATE_STORE_HOST, GATE_STORE_PASSWORD, ...).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.allow_origins", []string{"*"})

	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.user", "postgres")
	v.SetDefault("store.password", "")
	v.SetDefault("store.name", "controle_portao")
	v.SetDefault("store.sslmode", "disable")

	v.SetDefault("pipeline.recognition_interval", 3)
	v.SetDefault("pipeline.grant_grace_period", 3*time.Second)
	v.SetDefault("pipeline.inference_timeout", 10*time.Second)

	v.SetDefault("vision.plate_label", "license_plate")
	v.SetDefault("vision.min_confidence", 0.0)
	v.SetDefault("vision.inference_url", "http://localhost:9090")
	v.SetDefault("vision.frame_dir", "")

	v.SetConfigName("gate-controller")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Pipeline.RecognitionInterval < 1 {
		cfg.Pipeline.RecognitionInterval = 1
	}
	if len(cfg.Seed) == 0 {
		cfg.Seed = DefaultSeed()
	}

	return &cfg, nil
}

// DefaultSeed is the fixture whitelist used when no seed records are
// configured.
func DefaultSeed() []SeedRecord {
	return []SeedRecord{
		{Plate: "7394EAS", HolderName: "Visitante A"},
		{Plate: "AMQ4B44", HolderName: "Morador B"},
		{Plate: "JKL4321", HolderName: "Visitante C"},
	}
}
