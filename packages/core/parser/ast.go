package parser

import "fmt"

type Suite struct {
	Path  string
	Name  string
	Root  string
	Cases []*Case
}

// HasOnly reports whether any case is marked only.
func (s *Suite) HasOnly() bool {
	for _, c := range s.Cases {
		if c.Only {
			return true
		}
	}
	return false
}

type Case struct {
	Name     string
	File     string
	Message  string
	Kind     Kind
	Expected string
	// Equals is only meaningful for KindJSONPath when HasEquals is set.
	Equals    any
	HasEquals bool
	Tags      []string
	Skip      string
	Only      bool
	Line      int
}

type Kind int

const (
	KindContains Kind = iota
	KindNotContains
	KindMatches
	KindJSONPath
	KindSchema
)

var kindKeys = map[string]Kind{
	"contains":    KindContains,
	"notContains": KindNotContains,
	"matches":     KindMatches,
	"jsonPath":    KindJSONPath,
	"schema":      KindSchema,
}

func (k Kind) String() string {
	switch k {
	case KindContains:
		return "contains"
	case KindNotContains:
		return "notContains"
	case KindMatches:
		return "matches"
	case KindJSONPath:
		return "jsonPath"
	case KindSchema:
		return "schema"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseError points at the offending line of a suite file.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
