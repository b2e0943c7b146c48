// Package config loads qlbundle's configuration.
//
// Values are layered, each layer overriding the previous one: the embedded
// defaults, the user config file under the XDG config directory, an explicit
// config file, QLBUNDLE_* environment variables and finally command line
// flags. Config files may be TOML or YAML.
package config
