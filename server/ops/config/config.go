package config

import (
	"bytes"
	"flag"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var configFile = flag.String("config", "", "path to a config yaml")

type Config struct {
	// Styles override the built-in per-category node styling, keyed
	// by interface category ("wan", "lan", "dmz", ...).
	Styles  map[string]Style `yaml:"styles"`
	Render  Render           `yaml:"render"`
	Physics Physics          `yaml:"physics"`
}

type Style struct {
	Color string `yaml:"color"`
	Shape string `yaml:"shape"`
}

// Render controls the rendering lifecycle controller.
type Render struct {
	// ContainerRetries is the number of scheduled container-dimension
	// attempts after the initial check.
	ContainerRetries int `yaml:"container_retries"`
	// RetryDelaysMS are the backoff delays between attempts,
	// shortest first. The last entry repeats if retries exceed it.
	RetryDelaysMS []int `yaml:"retry_delays_ms"`
	// PostStabilizeDelayMS delays the final redraw+fit after the
	// engine reports convergence, to catch late layout shift.
	PostStabilizeDelayMS int `yaml:"post_stabilize_delay_ms"`

	DefaultWidth  int `yaml:"default_width"`
	DefaultHeight int `yaml:"default_height"`

	StabilizationIterations int `yaml:"stabilization_iterations"`
}

func (r Render) RetryDelay(attempt int) time.Duration {
	if len(r.RetryDelaysMS) == 0 {
		return 100 * time.Millisecond
	}
	if attempt >= len(r.RetryDelaysMS) {
		attempt = len(r.RetryDelaysMS) - 1
	}
	return time.Duration(r.RetryDelaysMS[attempt]) * time.Millisecond
}

func (r Render) PostStabilizeDelay() time.Duration {
	return time.Duration(r.PostStabilizeDelayMS) * time.Millisecond
}

// Physics parameterises the force-directed layout.
type Physics struct {
	Repulsion       float64 `yaml:"repulsion"`
	SpringLength    float64 `yaml:"spring_length"`
	SpringStiffness float64 `yaml:"spring_stiffness"`
	Damping         float64 `yaml:"damping"`
	Gravity         float64 `yaml:"gravity"`
}

func DefaultConfig() Config {
	return Config{
		Render: Render{
			ContainerRetries:        3,
			RetryDelaysMS:           []int{100, 300, 1000},
			PostStabilizeDelayMS:    100,
			DefaultWidth:            800,
			DefaultHeight:           600,
			StabilizationIterations: 1000,
		},
		Physics: Physics{
			Repulsion:       2000,
			SpringLength:    80,
			SpringStiffness: 0.05,
			Damping:         0.85,
			Gravity:         0.01,
		},
	}
}

var config = DefaultConfig()

func MustLoadConfig() {
	if *configFile == "" {
		return
	}
	c, err := os.ReadFile(*configFile)
	if err != nil {
		panic(err)
	}
	config, err = decodeConfig(c)
	if err != nil {
		panic(err)
	}
}

func GetConfig() Config {
	return config
}

func decodeConfig(content []byte) (Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(bytes.NewReader(content))
	d.KnownFields(true)
	err := d.Decode(&c)
	return c, err
}
