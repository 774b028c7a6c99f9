// Package cli wires the pas2cs command line: cobra flags, viper
// configuration from $HOME/.pas2cs.yaml and PAS2CS_* variables, and the
// resolved Config the processor and GUI run with.
package cli
