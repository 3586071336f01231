package scaffold

import (
	"fmt"
	"io"
)

// Banner writes the single startup line of the bootstrapper.
func Banner(w io.Writer, name, version string) error {
	if name == "" {
		name = "project"
	}
	if version == "" {
		version = "dev"
	}
	_, err := fmt.Fprintf(w, "srcguard %s: bootstrapping %s\n", version, name)
	return err
}
