package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions lists the file suffixes recognised as suites.
var Extensions = []string{".guard.yaml", ".guard.yml"}

// IsSuiteFile reports whether path has a suite extension.
func IsSuiteFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, ext := range Extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

var suiteKeys = map[string]bool{"name": true, "root": true, "assertions": true}

var caseKeys = map[string]bool{
	"name": true, "file": true, "message": true, "tags": true, "skip": true, "only": true, "equals": true,
	"contains": true, "notContains": true, "matches": true, "jsonPath": true, "schema": true,
}

func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

func Parse(data []byte, filename string) (*Suite, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{File: filename, Message: "empty suite"}
		}
		return nil, &ParseError{File: filename, Message: err.Error()}
	}

	if len(doc.Content) == 0 {
		return nil, &ParseError{File: filename, Message: "empty suite"}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, &ParseError{File: filename, Line: doc.Content[0].Line, Message: "suite must be a mapping"}
	}
	top := doc.Content[0]
	if err := checkKeys(top, suiteKeys, filename, "suite"); err != nil {
		return nil, err
	}

	suite := &Suite{Path: filename}
	var cases *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "name":
			suite.Name = val.Value
		case "root":
			suite.Root = val.Value
		case "assertions":
			cases = val
		}
	}

	if cases == nil || cases.Kind != yaml.SequenceNode || len(cases.Content) == 0 {
		return nil, &ParseError{File: filename, Line: top.Line, Message: "suite has no assertions"}
	}

	for _, n := range cases.Content {
		c, err := parseCase(n, filename)
		if err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, c)
	}

	return suite, nil
}

type rawCase struct {
	Name    string   `yaml:"name"`
	File    string   `yaml:"file"`
	Message string   `yaml:"message"`
	Tags    []string `yaml:"tags"`
	Skip    string   `yaml:"skip"`
	Only    bool     `yaml:"only"`
}

func parseCase(n *yaml.Node, filename string) (*Case, error) {
	fail := func(format string, args ...any) error {
		return &ParseError{File: filename, Line: n.Line, Message: fmt.Sprintf(format, args...)}
	}

	if n.Kind != yaml.MappingNode {
		return nil, fail("assertion must be a mapping")
	}
	if err := checkKeys(n, caseKeys, filename, "assertion"); err != nil {
		return nil, err
	}

	var raw rawCase
	if err := n.Decode(&raw); err != nil {
		return nil, fail("%v", err)
	}

	c := &Case{
		Name:    raw.Name,
		File:    strings.TrimSpace(raw.File),
		Message: raw.Message,
		Tags:    raw.Tags,
		Skip:    raw.Skip,
		Only:    raw.Only,
		Line:    n.Line,
	}
	if c.File == "" {
		return nil, fail("assertion is missing file")
	}

	var kinds []string
	var equals *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if kind, ok := kindKeys[key.Value]; ok {
			if val.Kind != yaml.ScalarNode {
				return nil, fail("%s must be a string", key.Value)
			}
			kinds = append(kinds, key.Value)
			c.Kind = kind
			c.Expected = val.Value
		}
		if key.Value == "equals" {
			equals = val
		}
	}

	switch len(kinds) {
	case 0:
		return nil, fail("assertion %q needs one of contains, notContains, matches, jsonPath, schema", c.File)
	case 1:
	default:
		return nil, fail("assertion %q has more than one check: %s", c.File, strings.Join(kinds, ", "))
	}

	if equals != nil {
		if c.Kind != KindJSONPath {
			return nil, fail("equals is only valid with jsonPath")
		}
		var v any
		if err := equals.Decode(&v); err != nil {
			return nil, fail("equals: %v", err)
		}
		c.Equals = v
		c.HasEquals = true
	}

	switch c.Kind {
	case KindMatches:
		if _, err := regexp.Compile(c.Expected); err != nil {
			return nil, fail("invalid pattern: %v", err)
		}
	case KindJSONPath, KindSchema:
		if strings.TrimSpace(c.Expected) == "" {
			return nil, fail("%s must not be empty", c.Kind)
		}
	}

	if c.Name == "" {
		c.Name = fmt.Sprintf("%s %s", c.File, c.Kind)
	}

	return c, nil
}

func checkKeys(n *yaml.Node, allowed map[string]bool, filename, what string) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !allowed[key.Value] {
			return &ParseError{File: filename, Line: key.Line, Message: fmt.Sprintf("unknown %s field %q", what, key.Value)}
		}
	}
	return nil
}
