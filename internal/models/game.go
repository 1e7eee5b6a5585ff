package models

// ConfigType tells how a game's automation script is structured.
type ConfigType string

const (
	ConfigSteps        ConfigType = "steps"
	ConfigStateMachine ConfigType = "state_machine"
)

// GameConfig is replaced wholesale on every reload.
type GameConfig struct {
	Name              string     `json:"name"`
	Path              string     `json:"path"`
	ConfigType        ConfigType `json:"config_type"`
	BenchmarkDuration float64    `json:"benchmark_duration"`
	Resolution        string     `json:"resolution"`
	Preset            string     `json:"preset"`
	YAMLPath          string     `json:"yaml_path"`
}
