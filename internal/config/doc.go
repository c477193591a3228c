// Package config provides the configuration of a wordcrawl run: the values
// collected from command line flags, the optional .wordcrawl file with
// per-host overrides, word list loading and the XDG directory layout.
package config
