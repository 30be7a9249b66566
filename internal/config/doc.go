// Package config loads runtime settings for the appcore CLI.
//
// Precedence, lowest first: built-in defaults, the appcore.cue file,
// APPCORE_* environment variables. Command-line flags are applied by the
// caller on top of the loaded Config.
//
// The config file is CUE and is validated against #Config before it is
// merged:
//
//	log_level: "debug"
//	journal: path: ".appcore/journal.db"
//	http: {
//		timeout:    "10s"
//		rate_limit: 5
//		burst:      2
//	}
//	script: timeout: "2s"
package config
