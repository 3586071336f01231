package assertions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/srcguard/packages/core/parser"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProject(t *testing.T, files map[string]string) guard.ProjectRoot {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return guard.MustProjectRoot(dir)
}

func TestEvaluator_Contains(t *testing.T) {
	root := createProject(t, map[string]string{
		"app/index.tsx": "if (selectedPet && (\n  <View>...</View>\n))",
		"app/old.tsx":   "if (pet) { render(pet) }",
	})
	e := NewEvaluator(root)

	result := e.Evaluate(&parser.Case{File: "app/index.tsx", Kind: parser.KindContains, Expected: "selectedPet && ("})
	assert.True(t, result.Passed())
	assert.Equal(t, "contains", result.Operator)
	assert.Equal(t, "app/index.tsx", result.Subject)

	result = e.Evaluate(&parser.Case{File: "app/old.tsx", Kind: parser.KindContains, Expected: "selectedPet && (", Message: "guard removed"})
	assert.Equal(t, guard.Fail, result.Verdict)
	assert.ErrorIs(t, result.Err, guard.ErrAssertion)
	assert.Contains(t, result.Message, "guard removed")

	result = e.Evaluate(&parser.Case{File: "app/missing.tsx", Kind: parser.KindContains, Expected: "selectedPet && ("})
	assert.Equal(t, guard.Error, result.Verdict)
	assert.ErrorIs(t, result.Err, guard.ErrIO)
}

func TestEvaluator_NotContains(t *testing.T) {
	root := createProject(t, map[string]string{
		"a.ts": "const a = 1\nconsole.log(a)\n",
		"b.ts": "const b = 2\n",
	})
	e := NewEvaluator(root)

	result := e.Evaluate(&parser.Case{File: "a.ts", Kind: parser.KindNotContains, Expected: "console.log("})
	assert.Equal(t, guard.Fail, result.Verdict)
	assert.Equal(t, "found at line 2", result.Actual)
	assert.Contains(t, result.Message, "not to contain")

	result = e.Evaluate(&parser.Case{File: "b.ts", Kind: parser.KindNotContains, Expected: "console.log("})
	assert.True(t, result.Passed())

	result = e.Evaluate(&parser.Case{File: "c.ts", Kind: parser.KindNotContains, Expected: "console.log("})
	assert.Equal(t, guard.Error, result.Verdict, "a missing file never passes a negative check")
}

func TestEvaluator_Matches(t *testing.T) {
	root := createProject(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	e := NewEvaluator(root)

	tests := []struct {
		name    string
		pattern string
		verdict guard.Verdict
	}{
		{"matches", `func main\(\)`, guard.Pass},
		{"multiline anchor", `(?m)^package main$`, guard.Pass},
		{"no match", `func init\(\)`, guard.Fail},
		{"invalid pattern", `(`, guard.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(&parser.Case{File: "main.go", Kind: parser.KindMatches, Expected: tt.pattern})
			assert.Equal(t, tt.verdict, result.Verdict, "message: %s", result.Message)
		})
	}
}

func TestEvaluator_JSONPath(t *testing.T) {
	root := createProject(t, map[string]string{
		"app.json":  `{"expo": {"name": "petstore", "version": 3, "plugins": ["router", "camera"]}}`,
		"broken.js": `{"expo": `,
	})
	e := NewEvaluator(root)

	tests := []struct {
		name    string
		c       *parser.Case
		verdict guard.Verdict
	}{
		{"exists", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.name"}, guard.Pass},
		{"missing", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.slug"}, guard.Fail},
		{"equals string", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.name", Equals: "petstore", HasEquals: true}, guard.Pass},
		{"equals number", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.version", Equals: 3, HasEquals: true}, guard.Pass},
		{"not equal", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.version", Equals: 4, HasEquals: true}, guard.Fail},
		{"bracket index", &parser.Case{File: "app.json", Kind: parser.KindJSONPath, Expected: "expo.plugins[1]", Equals: "camera", HasEquals: true}, guard.Pass},
		{"invalid json", &parser.Case{File: "broken.js", Kind: parser.KindJSONPath, Expected: "expo"}, guard.Fail},
		{"missing file", &parser.Case{File: "nope.json", Kind: parser.KindJSONPath, Expected: "expo"}, guard.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.c)
			assert.Equal(t, tt.verdict, result.Verdict, "message: %s", result.Message)
		})
	}
}

func TestEvaluator_Schema(t *testing.T) {
	schema := `{
  "type": "object",
  "required": ["name"],
  "properties": {"name": {"type": "string"}}
}`
	root := createProject(t, map[string]string{
		"schemas/app.json": schema,
		"good.json":        `{"name": "petstore"}`,
		"bad.json":         `{"name": 42}`,
		"text.txt":         `not json`,
	})
	e := NewEvaluator(root)

	result := e.Evaluate(&parser.Case{File: "good.json", Kind: parser.KindSchema, Expected: "schemas/app.json"})
	assert.True(t, result.Passed(), result.Message)

	result = e.Evaluate(&parser.Case{File: "bad.json", Kind: parser.KindSchema, Expected: "schemas/app.json"})
	assert.Equal(t, guard.Fail, result.Verdict)
	assert.Contains(t, result.Message, "schema validation failed")

	result = e.Evaluate(&parser.Case{File: "text.txt", Kind: parser.KindSchema, Expected: "schemas/app.json"})
	assert.Equal(t, guard.Fail, result.Verdict)

	result = e.Evaluate(&parser.Case{File: "good.json", Kind: parser.KindSchema, Expected: "schemas/missing.json"})
	assert.Equal(t, guard.Error, result.Verdict)
	assert.ErrorIs(t, result.Err, guard.ErrIO)

	result = e.Evaluate(&parser.Case{File: "good.json", Kind: parser.KindSchema, Expected: "../outside.json"})
	assert.ErrorIs(t, result.Err, guard.ErrUsage)
}

func TestEvaluator_Traversal(t *testing.T) {
	root := createProject(t, map[string]string{"a.txt": "x"})
	e := NewEvaluator(root)

	for _, kind := range []parser.Kind{parser.KindContains, parser.KindNotContains, parser.KindMatches, parser.KindJSONPath} {
		result := e.Evaluate(&parser.Case{File: "../a.txt", Kind: kind, Expected: "x"})
		assert.ErrorIs(t, result.Err, guard.ErrUsage, kind.String())
		assert.Equal(t, guard.Error, result.Verdict)
	}
}

func TestEvaluateAll(t *testing.T) {
	root := createProject(t, map[string]string{"a.txt": "alpha"})
	cases := []*parser.Case{
		{File: "a.txt", Kind: parser.KindContains, Expected: "alpha"},
		{File: "a.txt", Kind: parser.KindContains, Expected: "beta"},
		{File: "b.txt", Kind: parser.KindContains, Expected: "alpha"},
	}

	results := EvaluateAll(root, cases)
	require.Len(t, results, 3)
	assert.Equal(t, guard.Pass, results[0].Verdict)
	assert.Equal(t, guard.Fail, results[1].Verdict)
	assert.Equal(t, guard.Error, results[2].Verdict)
}

func TestConvertBracketNotation(t *testing.T) {
	assert.Equal(t, "0.id", convertBracketNotation("[0].id"))
	assert.Equal(t, "items.0.tags.1", convertBracketNotation("items[0].tags[1]"))
	assert.Equal(t, "a.b", convertBracketNotation("a.b"))
}
