package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/node"
)

// Config represents the complete tilesync deployment configuration
type Config struct {
	NodeID           string        `yaml:"node_id"`            // default: random uuid
	Tile             TileConfig    `yaml:"tile"`
	Codec            string        `yaml:"codec"`              // text, msgpack
	Sprite           SpriteConfig  `yaml:"sprite"`
	Timing           TimingConfig  `yaml:"timing"`
	Radio            RadioConfig   `yaml:"radio"`
	MQTT             MQTTConfig    `yaml:"mqtt"`
	Cluster          ClusterConfig `yaml:"cluster"`
	Viewer           ViewerConfig  `yaml:"viewer"`
	ShutdownTimeoutS int           `yaml:"shutdown_timeout_s"` // graceful shutdown timeout in seconds (default: 5)
}

// TileConfig is the per-node LED matrix size
type TileConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SpriteConfig places the coordinator's sprite
type SpriteConfig struct {
	StartX int       `yaml:"start_x"`
	StartY int       `yaml:"start_y"`
	Bitmap [][]uint8 `yaml:"bitmap,omitempty"` // default: 3x4 blob
}

// TimingConfig holds every protocol delay, in milliseconds
type TimingConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
	RenderLeadMs   int `yaml:"render_lead_ms"`
	TickIntervalMs int `yaml:"tick_interval_ms"`
	IdentityHoldMs int `yaml:"identity_hold_ms"`
}

// RadioConfig selects and tunes the radio transport
type RadioConfig struct {
	Transport   string  `yaml:"transport"`    // ether, mqtt
	Group       int     `yaml:"group"`        // 0-255
	QueueLength int     `yaml:"queue_length"` // per-node inbox
	LossRate    float64 `yaml:"loss_rate"`    // ether only, [0,1)
	LossSeed    int64   `yaml:"loss_seed"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// ClusterConfig sizes the simulated cluster
type ClusterConfig struct {
	Nodes int `yaml:"nodes"`
}

// ViewerConfig contains the HTTP viewer settings
type ViewerConfig struct {
	Addr       string `yaml:"addr"`
	IntervalMs int    `yaml:"interval_ms"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the validated built-in configuration
func Default() *Config {
	cfg := &Config{}
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: built-in defaults invalid: %v", err))
	}
	return cfg
}

// NodeConfig converts the file settings into a node template
func (c *Config) NodeConfig() (node.Config, error) {
	cd, err := codec.ByName(c.Codec)
	if err != nil {
		return node.Config{}, err
	}

	bitmap := c.Sprite.Bitmap
	if bitmap == nil {
		bitmap = canvas.DefaultSprite
	}

	return node.Config{
		ID:           c.NodeID,
		TileWidth:    c.Tile.Width,
		TileHeight:   c.Tile.Height,
		Codec:        cd,
		RadioGroup:   uint8(c.Radio.Group),
		Sprite:       canvas.Sprite{Bitmap: bitmap, X: c.Sprite.StartX, Y: c.Sprite.StartY},
		PollInterval: ms(c.Timing.PollIntervalMs),
		RenderLead:   ms(c.Timing.RenderLeadMs),
		TickInterval: ms(c.Timing.TickIntervalMs),
		IdentityHold: ms(c.Timing.IdentityHoldMs),
	}, nil
}

// ShutdownTimeout returns the graceful shutdown budget
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// ViewerInterval returns the websocket push period
func (c *Config) ViewerInterval() time.Duration {
	return ms(c.Viewer.IntervalMs)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
