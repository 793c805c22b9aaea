// Package fixture reads annotated Ruby test files and checks code actions
// against their expected output.
//
// A fixture marks selections with a comment on the following line:
//
//	def b; 1 + 123; end
//	#          ^^^ apply-code-action: [A] Extract Variable
//
// The carets select the columns they sit under. Applying action A must
// produce the file next to the fixture with the label before the extension
// (method.A.rbedited for method.rb). Leading comment lines of the form
// "# key: value" configure the run.
package fixture

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// Header keys understood by the runner.
const (
	HeaderEnableExtract   = "enable-experimental-lsp-extract-to-variable"
	HeaderSelectiveApply  = "selective-apply-code-action"
	HeaderOccurrences     = "extract-variable-occurrences"
	HeaderSingleLineStyle = "extract-variable-single-line-style"
	HeaderVariableName    = "extract-variable-name"
)

// EditedExt is the extension of expectation files.
const EditedExt = ".rbedited"

var (
	annotationRe = regexp.MustCompile(`^\s*#\s*(\^+)\s+apply-code-action:\s+\[([A-Za-z0-9_]+)\]\s+(.+?)\s*$`)
	headerRe     = regexp.MustCompile(`^#\s*([a-z][a-z0-9-]*):\s*(.*?)\s*$`)
)

// Assertion is one apply-code-action annotation.
type Assertion struct {
	Label string
	Title string
	// Range covers the carets, projected onto the annotated line.
	Range types.Range
	// Line is the zero-based line of the annotation comment itself.
	Line int
}

// Fixture is a parsed annotated file.
type Fixture struct {
	Path       string
	Source     []byte
	Headers    map[string]string
	Assertions []Assertion
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read fixture %s", path),
			File:    path,
			Cause:   err,
		}
	}
	return Parse(path, src)
}

// Parse extracts headers and annotations from src.
func Parse(path string, src []byte) (*Fixture, error) {
	f := &Fixture{
		Path:    path,
		Source:  src,
		Headers: make(map[string]string),
	}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	inHeader := true
	target := -1
	seen := make(map[string]bool)

	for line := 0; scanner.Scan(); line++ {
		text := scanner.Text()

		if m := annotationRe.FindStringSubmatch(text); m != nil {
			inHeader = false
			if target < 0 {
				return nil, parseError(path, line, "annotation has no line above it")
			}
			label := m[2]
			if seen[label] {
				return nil, parseError(path, line, "duplicate label [%s]", label)
			}
			seen[label] = true

			col := strings.Index(text, "^")
			f.Assertions = append(f.Assertions, Assertion{
				Label: label,
				Title: m[3],
				Range: types.Range{
					Start: types.Position{Line: target, Character: col},
					End:   types.Position{Line: target, Character: col + len(m[1])},
				},
				Line: line,
			})
			continue
		}

		if inHeader {
			if !strings.HasPrefix(text, "#") {
				inHeader = false
			} else if m := headerRe.FindStringSubmatch(text); m != nil {
				f.Headers[m[1]] = m[2]
			}
		}
		target = line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fixture %s: %w", path, err)
	}
	return f, nil
}

func parseError(path string, line int, format string, args ...any) error {
	return &types.RefactorError{
		Type:    types.ParseError,
		Message: fmt.Sprintf(format, args...),
		File:    path,
		Line:    line + 1,
		Column:  1,
	}
}

// Config applies the fixture's headers to base.
func (f *Fixture) Config(base refactor.EngineConfig) (refactor.EngineConfig, error) {
	var s config.Settings
	if raw, ok := f.Headers[HeaderEnableExtract]; ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return base, fmt.Errorf("%s: %s: %w", f.Path, HeaderEnableExtract, err)
		}
		s.ExtractToVariable = &enabled
	}
	s.Occurrences = f.Headers[HeaderOccurrences]
	s.SingleLineStyle = f.Headers[HeaderSingleLineStyle]
	s.VariableName = f.Headers[HeaderVariableName]

	cfg, err := s.Apply(base)
	if err != nil {
		return base, fmt.Errorf("%s: %w", f.Path, err)
	}
	return cfg, nil
}

// KindFilter returns the code action kinds the fixture applies, or nil for
// all of them.
func (f *Fixture) KindFilter() []string {
	raw := strings.TrimSpace(f.Headers[HeaderSelectiveApply])
	if raw == "" {
		return nil
	}
	var kinds []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ExpectedPath is the expectation file for label.
func (f *Fixture) ExpectedPath(label string) string {
	ext := filepath.Ext(f.Path)
	return strings.TrimSuffix(f.Path, ext) + "." + label + EditedExt
}
