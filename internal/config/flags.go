package config

import "flag"

var (
	flagConfig            = flag.String("config", "", "Path to config file")
	flagDebug             = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile           = flag.String("log-file", "", "Also write logs to this file")
	flagReferenceDistance = flag.Float64("reference-distance", 0, "Displacement that maps to full weight")
	flagNullPolicy        = flag.String("null-policy", "", "Null joint policy: none, zero or remainder")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagReferenceDistance > 0 {
		cfg.Rig.ReferenceDistance = float32(*flagReferenceDistance)
	}
	if *flagNullPolicy != "" {
		cfg.Weights.NullPolicy = *flagNullPolicy
	}
}
