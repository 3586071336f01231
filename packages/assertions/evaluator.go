package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

type Result struct {
	Verdict  guard.Verdict
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
	Err      error
}

// Passed reports whether the check succeeded.
func (r *Result) Passed() bool {
	return r.Verdict == guard.Pass
}

type Evaluator struct {
	root   guard.ProjectRoot
	logger *zap.Logger
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEvaluator(root guard.ProjectRoot, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		root:   root,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Root() guard.ProjectRoot {
	return e.root
}

func (e *Evaluator) Evaluate(c *parser.Case) *Result {
	result := &Result{
		Subject:  c.File,
		Operator: c.Kind.String(),
		Expected: c.Expected,
	}
	if c.HasEquals {
		result.Expected = c.Equals
	}

	var err error
	switch c.Kind {
	case parser.KindContains:
		err = guard.CheckContains(e.root.String(), c.File, c.Expected, c.Message)
	case parser.KindNotContains:
		err = e.notContains(c, result)
	case parser.KindMatches:
		err = e.matches(c, result)
	case parser.KindJSONPath:
		err = e.jsonPath(c, result)
	case parser.KindSchema:
		err = e.schema(c, result)
	default:
		err = &guard.UsageError{Field: "kind", Value: c.Kind.String(), Reason: "unknown check"}
	}

	result.Err = err
	result.Verdict = guard.Classify(err)
	if err != nil {
		result.Message = err.Error()
	}

	e.logger.Debug("evaluated",
		zap.String("file", c.File),
		zap.String("kind", result.Operator),
		zap.Stringer("verdict", result.Verdict))

	return result
}

func (e *Evaluator) notContains(c *parser.Case, result *Result) error {
	_, data, err := e.root.ReadFile(c.File)
	if err != nil {
		return err
	}
	content := string(data)
	idx := strings.Index(content, c.Expected)
	if idx < 0 {
		return nil
	}
	line := strings.Count(content[:idx], "\n") + 1
	result.Actual = fmt.Sprintf("found at line %d", line)
	return &guard.AssertionError{
		Path:     c.File,
		Expected: c.Expected,
		Message:  messageOr(c.Message, fmt.Sprintf("expected content not to contain %q (line %d)", c.Expected, line)),
	}
}

func (e *Evaluator) matches(c *parser.Case, result *Result) error {
	re, err := regexp.Compile(c.Expected)
	if err != nil {
		return &guard.UsageError{Field: "matches", Value: c.Expected, Reason: err.Error()}
	}
	_, data, err := e.root.ReadFile(c.File)
	if err != nil {
		return err
	}
	if re.Match(data) {
		return nil
	}
	return &guard.AssertionError{
		Path:     c.File,
		Expected: c.Expected,
		Message:  messageOr(c.Message, fmt.Sprintf("expected content to match /%s/", c.Expected)),
	}
}

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

func (e *Evaluator) jsonPath(c *parser.Case, result *Result) error {
	_, data, err := e.root.ReadFile(c.File)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return &guard.AssertionError{
			Path:     c.File,
			Expected: c.Expected,
			Message:  messageOr(c.Message, "file is not valid JSON"),
		}
	}

	value := gjson.GetBytes(data, convertBracketNotation(c.Expected))
	if !value.Exists() {
		return &guard.AssertionError{
			Path:     c.File,
			Expected: c.Expected,
			Message:  messageOr(c.Message, fmt.Sprintf("expected %s to exist", c.Expected)),
		}
	}
	result.Actual = value.Value()

	if !c.HasEquals {
		return nil
	}
	if ok, msg := equals(value.Value(), c.Equals); !ok {
		return &guard.AssertionError{
			Path:     c.File,
			Expected: fmt.Sprintf("%v", c.Equals),
			Message:  messageOr(c.Message, fmt.Sprintf("%s: %s", c.Expected, msg)),
		}
	}
	return nil
}

func (e *Evaluator) schema(c *parser.Case, result *Result) error {
	_, schemaData, err := e.root.ReadFile(c.Expected)
	if err != nil {
		return err
	}
	_, data, err := e.root.ReadFile(c.File)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return &guard.AssertionError{
			Path:     c.File,
			Expected: c.Expected,
			Message:  messageOr(c.Message, "file is not valid JSON"),
		}
	}

	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaData), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &guard.UsageError{Field: "schema", Value: c.Expected, Reason: err.Error()}
	}
	if res.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range res.Errors() {
		problems = append(problems, desc.String())
	}
	result.Actual = problems
	return &guard.AssertionError{
		Path:     c.File,
		Expected: c.Expected,
		Message:  messageOr(c.Message, "schema validation failed: "+strings.Join(problems, "; ")),
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// EvaluateAll evaluates cases in order against root.
func EvaluateAll(root guard.ProjectRoot, cases []*parser.Case, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(root, opts...)
	results := make([]*Result, len(cases))
	for i, c := range cases {
		results[i] = evaluator.Evaluate(c)
	}
	return results
}
