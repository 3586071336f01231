package scaffold

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/srcguard/packages/core/config"
)

const (
	// SuitesDir is where init places the starter suite.
	SuitesDir = "guards"
)

func starterSuite(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", quoteIfNeeded(name+" guards"))
	b.WriteString(`root: ..
assertions:
  - name: guard config lists the suites directory
    file: .srcguard.yaml
    contains: "suites:"
    tags: [smoke]

  # More checks, one kind per case:
  #
  # - name: pet details are only rendered once a pet is selected
  #   file: app/index.tsx
  #   contains: "selectedPet && ("
  #   message: conditional rendering guard was removed
  #
  # - name: no debug logging left behind
  #   file: src/main.go
  #   notContains: "fmt.Println(\"debug"
  #
  # - name: version is semver
  #   file: package.json
  #   jsonPath: version
  #
  # - name: app config is valid
  #   file: app.json
  #   schema: schemas/app.schema.json
`)
	return b.String()
}

// quoteIfNeeded keeps names with YAML indicator characters as one scalar.
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, ":#{}[]&*!|>'\"%@`,") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func starterConfig(steps []config.Step) *config.Config {
	cfg := &config.Config{
		Suites: []string{SuitesDir},
		Output: "console",
	}
	if len(steps) > 0 {
		cfg.Scaffold = &config.Scaffold{Steps: steps}
	}
	return cfg
}
