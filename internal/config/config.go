package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Recognition RecognitionConfig
	Bridge      BridgeConfig
	Thresholds  ThresholdsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RecognitionConfig struct {
	// FaceServiceURL selects the remote backend when set; the local
	// descriptor-matching backend is used otherwise.
	FaceServiceURL string
	FaceServiceKey string
	// DetectorURL is the local face-detector model service (defaults to
	// http://localhost:8000).
	DetectorURL string
}

type BridgeConfig struct {
	URL   string // websocket URL of the chat bridge (e.g. ws://localhost:3000/ws)
	Token string // bridge auth token
}

type ThresholdsConfig struct {
	Matching MatchingThresholds `yaml:"matching"`
}

type MatchingThresholds struct {
	MaxDistance           float64 `yaml:"max_distance"`
	MinTrainScore         float64 `yaml:"min_train_score"`
	MinIdentifyConfidence float64 `yaml:"min_identify_confidence"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognition: RecognitionConfig{
			FaceServiceURL: os.Getenv("FACE_SERVICE_URL"),
			FaceServiceKey: os.Getenv("FACE_SERVICE_KEY"),
			DetectorURL:    os.Getenv("DETECTOR_URL"),
		},
		Bridge: BridgeConfig{
			URL:   os.Getenv("BRIDGE_URL"),
			Token: os.Getenv("BRIDGE_TOKEN"),
		},
		Thresholds: thresholds,
	}
}
