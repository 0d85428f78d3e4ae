// Package cmdutil holds the small pieces of plumbing every monikerctl verb
// subcommand shares: config loading and JSON output.
package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
)

// LoadConfig loads the layered configuration for a given --config flag
// value.
func LoadConfig(cfgFile string) (*mconfig.Config, error) {
	return mconfig.Load(cfgFile, nil)
}

// PrintJSON writes v to w as indented JSON, one value per invocation.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
