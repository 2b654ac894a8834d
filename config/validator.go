package config

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/node"
)

// Transports
const (
	TransportEther = "ether"
	TransportMQTT  = "mqtt"
)

// MaxTileSide bounds each tile dimension
const MaxTileSide = 32

var topicPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_\-/]+$`)

// Validate checks the configuration and fills defaults for zero values
func Validate(cfg *Config) error {
	// node_id
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	// Tile
	if cfg.Tile.Width == 0 {
		cfg.Tile.Width = node.DefaultTileWidth
	}
	if cfg.Tile.Height == 0 {
		cfg.Tile.Height = node.DefaultTileHeight
	}
	if cfg.Tile.Width < 1 || cfg.Tile.Width > MaxTileSide ||
		cfg.Tile.Height < 1 || cfg.Tile.Height > MaxTileSide {
		return fmt.Errorf("tile must be between 1x1 and %dx%d, got %dx%d",
			MaxTileSide, MaxTileSide, cfg.Tile.Width, cfg.Tile.Height)
	}

	// Codec
	if cfg.Codec == "" {
		cfg.Codec = codec.TextName
	}
	if _, err := codec.ByName(cfg.Codec); err != nil {
		return fmt.Errorf("codec: %w", err)
	}

	// Sprite
	if cfg.Sprite.Bitmap == nil {
		if cfg.Sprite.StartX == 0 {
			cfg.Sprite.StartX = node.DefaultSpriteX
		}
		if cfg.Sprite.StartY == 0 {
			cfg.Sprite.StartY = node.DefaultSpriteY
		}
	}
	if err := ValidateSprite(cfg.Sprite); err != nil {
		return fmt.Errorf("sprite validation failed: %w", err)
	}

	// Timing
	if err := validateTiming(&cfg.Timing); err != nil {
		return err
	}

	// Radio
	if cfg.Radio.Transport == "" {
		cfg.Radio.Transport = TransportEther
	}
	if cfg.Radio.Group == 0 {
		cfg.Radio.Group = node.DefaultRadioGroup
	}
	if cfg.Radio.Group < 0 || cfg.Radio.Group > 255 {
		return fmt.Errorf("radio.group must be 0-255, got %d", cfg.Radio.Group)
	}
	if cfg.Radio.QueueLength <= 0 {
		cfg.Radio.QueueLength = 32 // default
	}
	if cfg.Radio.LossRate < 0 || cfg.Radio.LossRate >= 1 {
		return fmt.Errorf("radio.loss_rate must be in [0,1), got %v", cfg.Radio.LossRate)
	}

	switch cfg.Radio.Transport {
	case TransportEther:
	case TransportMQTT:
		if err := validateMQTT(&cfg.MQTT); err != nil {
			return err
		}
	default:
		return fmt.Errorf("radio.transport: unknown transport '%s' (must be '%s' or '%s')",
			cfg.Radio.Transport, TransportEther, TransportMQTT)
	}

	// Cluster
	if cfg.Cluster.Nodes == 0 {
		cfg.Cluster.Nodes = 3
	}
	if cfg.Cluster.Nodes < 1 {
		return fmt.Errorf("cluster.nodes must be >= 1, got %d", cfg.Cluster.Nodes)
	}

	// Viewer
	if cfg.Viewer.Addr == "" {
		cfg.Viewer.Addr = ":8080"
	}
	if cfg.Viewer.IntervalMs <= 0 {
		cfg.Viewer.IntervalMs = 200
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	return nil
}

func validateTiming(t *TimingConfig) error {
	defaults := []struct {
		name  string
		value *int
		def   int
	}{
		{"timing.poll_interval_ms", &t.PollIntervalMs, int(node.DefaultPollInterval.Milliseconds())},
		{"timing.render_lead_ms", &t.RenderLeadMs, int(node.DefaultRenderLead.Milliseconds())},
		{"timing.tick_interval_ms", &t.TickIntervalMs, int(node.DefaultTickInterval.Milliseconds())},
		{"timing.identity_hold_ms", &t.IdentityHoldMs, int(node.DefaultIdentityHold.Milliseconds())},
	}
	for _, d := range defaults {
		if *d.value < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", d.name, *d.value)
		}
		if *d.value == 0 {
			*d.value = d.def
		}
	}
	return nil
}

func validateMQTT(m *MQTTConfig) error {
	if m.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when radio.transport is '%s'", TransportMQTT)
	}
	if m.TopicPrefix == "" {
		m.TopicPrefix = "tilesync"
	}
	if !topicPrefixPattern.MatchString(m.TopicPrefix) {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards, got '%s'", m.TopicPrefix)
	}
	return nil
}

// ValidateSprite checks a configured bitmap is rectangular with 0-9 cells
func ValidateSprite(s SpriteConfig) error {
	if s.Bitmap == nil {
		return nil
	}
	if s.StartY < 0 {
		return fmt.Errorf("start_y must be >= 0, got %d", s.StartY)
	}
	_, err := canvas.NewProducer(canvas.Sprite{Bitmap: s.Bitmap, X: s.StartX, Y: s.StartY})
	return err
}
