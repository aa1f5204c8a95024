package config

// Presets are named driving styles: gain/limit sets that have worked on
// real tracks. The calibration section is never preset; it belongs to the
// car, not the driving style.
var Presets = map[string]*DriverConfig{
	"cautious": {
		SteeringKpy:   80,
		SteeringKvy:   250,
		YawBW:         80,
		MotorBW:       50,
		SpeedLimit:    300,
		TractionLimit: 500,
	},
	"default": {
		SteeringKpy:   100,
		SteeringKvy:   200,
		YawBW:         100,
		MotorBW:       70,
		SpeedLimit:    500,
		TractionLimit: 800,
	},
	"race": {
		SteeringKpy:   120,
		SteeringKvy:   180,
		YawBW:         120,
		MotorBW:       90,
		SpeedLimit:    800,
		TractionLimit: 1100,
	},
}

func GetPreset(name string) *DriverConfig {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
