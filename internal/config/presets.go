package config

import "sort"

var Presets = map[string]*Config{
	"calm": preset(func(c *Config) {
		c.SpawnIntervalMs = 600
		c.MaxObjects = 20
		c.HardLimit = 25
		c.Restitution = 0.2
	}),
	"dense": preset(func(c *Config) {
		c.SpawnIntervalMs = 150
		c.MaxObjects = 60
		c.HardLimit = 80
		c.RadiusMin, c.RadiusMax = 12, 18
	}),
	"storm": preset(func(c *Config) {
		c.SpawnIntervalMs = 80
		c.MaxObjects = 45
		c.HardLimit = 60
		c.Gravity = 1400
		c.Restitution = 0.6
		c.Launch.MaxVX, c.Launch.MaxVY = 180, 300
		c.Launch.MaxAngular = 6
	}),
	"tiny": preset(func(c *Config) {
		c.Width, c.Height = 320, 240
		c.MaxObjects = 8
		c.HardLimit = 12
		c.RadiusMin, c.RadiusMax = 10, 16
		c.Duration = 10
	}),
}

func preset(mutate func(*Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
