package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tutorsim.ai/internal/sim/world"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// TimeChar is the simulated time charged per character on the channel.
	TimeChar int   `yaml:"time_char"`
	Seed     int64 `yaml:"seed"`

	// Tasks is the curriculum: task names the picker draws from.
	Tasks []string `yaml:"tasks"`

	World   WorldTuning   `yaml:"world"`
	Channel ChannelTuning `yaml:"channel"`
}

type WorldTuning struct {
	StartPos     [2]int         `yaml:"start_pos"`
	StartDir     string         `yaml:"start_dir"`
	BoundaryR    int            `yaml:"boundary_r"`
	StarterItems map[string]int `yaml:"starter_items"`
}

type ChannelTuning struct {
	// MaxUtterance bounds the bytes buffered while waiting for a sentence end.
	MaxUtterance int `yaml:"max_utterance"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TimeChar:        32,
		Seed:            1,
		World: WorldTuning{
			StartDir:  string(world.North),
			BoundaryR: 8,
		},
		Channel: ChannelTuning{MaxUtterance: 512},
	}
}

// Load reads path over Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.ProtocolVersion == "" {
		return fmt.Errorf("protocol_version missing")
	}
	if t.TimeChar <= 0 {
		return fmt.Errorf("time_char must be > 0 (got %d)", t.TimeChar)
	}
	if t.Channel.MaxUtterance <= 0 {
		return fmt.Errorf("channel.max_utterance must be > 0 (got %d)", t.Channel.MaxUtterance)
	}
	seen := map[string]bool{}
	for _, name := range t.Tasks {
		if name == "" || seen[name] {
			return fmt.Errorf("tasks: empty or duplicate name %q", name)
		}
		seen[name] = true
	}
	if _, err := world.ParseDirection(t.World.StartDir); err != nil {
		return fmt.Errorf("world.start_dir: %w", err)
	}
	if t.World.BoundaryR <= 0 {
		return fmt.Errorf("world.boundary_r must be > 0 (got %d)", t.World.BoundaryR)
	}
	return nil
}

// WorldConfig builds the configuration for one learner's world.
func (t Tuning) WorldConfig(id string) world.WorldConfig {
	dir, _ := world.ParseDirection(t.World.StartDir)
	items := make(map[string]int, len(t.World.StarterItems))
	for k, v := range t.World.StarterItems {
		items[k] = v
	}
	return world.WorldConfig{
		ID:           id,
		StartPos:     world.Vec{X: t.World.StartPos[0], Y: t.World.StartPos[1]},
		StartDir:     dir,
		BoundaryR:    t.World.BoundaryR,
		StarterItems: items,
	}
}

// Digest identifies the effective tuning, so recorded outcomes can be tied
// to the parameters that produced them.
func (t Tuning) Digest() string {
	b, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
