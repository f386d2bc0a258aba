// Package cli assembles the acp command-line application: the Cobra root
// command, configuration loading, and logger construction.
package cli
