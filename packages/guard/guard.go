package guard

import "path/filepath"

// SourceAssertion is one check that a file under the project root contains
// a snippet. It carries no state between evaluations.
type SourceAssertion struct {
	RelativePath      string
	ExpectedSubstring string
	FailureMessage    string
}

// CheckContains reports whether the file at root/relativePath contains
// expectedSubstring. The match is literal and case-sensitive; an empty
// substring matches any readable file.
func CheckContains(root, relativePath, expectedSubstring, failureMessage string) error {
	if root == "" {
		return &UsageError{Field: "root", Reason: "must not be empty"}
	}
	if !filepath.IsAbs(root) {
		return &UsageError{Field: "root", Value: root, Reason: "must be an absolute path"}
	}
	return ProjectRoot{path: filepath.Clean(root)}.Check(SourceAssertion{
		RelativePath:      relativePath,
		ExpectedSubstring: expectedSubstring,
		FailureMessage:    failureMessage,
	})
}
