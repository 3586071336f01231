package guardtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	errors []string
	fatals []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}

func fixture(t *testing.T) guard.ProjectRoot {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.tsx"), []byte("{selectedPet && (<View/>)}"), 0644))
	return guard.MustProjectRoot(dir)
}

func TestAssertContains(t *testing.T) {
	root := fixture(t)

	rec := &recorder{}
	assert.True(t, AssertContains(rec, root, "index.tsx", "selectedPet && (", "guard"))
	assert.Empty(t, rec.errors)

	assert.False(t, AssertContains(rec, root, "index.tsx", "pet.id", "needs id"))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "source assertion failed")
	assert.Contains(t, rec.errors[0], "needs id")
	assert.Empty(t, rec.fatals)
}

func TestRequireContains_DistinguishesIOError(t *testing.T) {
	root := fixture(t)

	rec := &recorder{}
	RequireContains(rec, root, "missing.tsx", "x", "guard")
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "cannot read source file")

	rec = &recorder{}
	RequireContains(rec, root, "../escape.tsx", "x", "guard")
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "invalid source assertion")
}

func TestRoot(t *testing.T) {
	r := Root(t, "go.mod")
	_, err := os.Stat(filepath.Join(r.String(), "go.mod"))
	assert.NoError(t, err)

	// the module's own guard: this helper must keep delegating to the harness
	AssertContains(t, r, "packages/guard/guardtest/guardtest.go", "root.Check(guard.SourceAssertion", "guardtest must delegate to guard")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"short"`, quote("short"))

	ascii := strings.Repeat("a", 70)
	assert.Equal(t, `"`+strings.Repeat("a", 60)+`..."`, quote(ascii))

	pets := strings.Repeat("🐾", 70)
	q := quote(pets)
	assert.True(t, utf8.ValidString(q))
	assert.Equal(t, `"`+strings.Repeat("🐾", 60)+`..."`, q)
}
