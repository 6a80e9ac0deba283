// Package persist saves and loads application configuration structs to disk
// in TOML, JSON, or YAML.
//
// A configuration type is registered once with a Store (directory, file name,
// format, overwrite policy), after which Save and Load take no parameters
// beyond the value itself:
//
//	type AppConfig struct {
//	    Username    string `toml:"username" json:"username" yaml:"username"`
//	    LaunchCount int    `toml:"launch_count" json:"launch_count" yaml:"launch_count"`
//	}
//
//	store := persist.New()
//	if err := persist.Register[AppConfig](store); err != nil {
//	    log.Fatal(err)
//	}
//	// writes ./AppConfig.toml
//	if err := store.Save(AppConfig{Username: "alice", LaunchCount: 1}); err != nil {
//	    log.Fatal(err)
//	}
//	var cfg AppConfig
//	if err := store.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Registrations may also opt into environment overrides applied after a load
// (WithEnvPrefix) and struct defaults/validation via github.com/ygrebnov/model
// (WithModel).
//
// Every Save and Load is a fresh filesystem round trip; nothing is cached and
// failures are returned as typed errors detectable with errors.Is.
package persist
