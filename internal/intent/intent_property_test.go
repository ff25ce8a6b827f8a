package intent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestClassifyTestPathIsCaseAndSeparatorAgnosticProperty verifies spec.md §8
// property 5: classify(path) for a path naming a test file is case-insensitive
// and separator-agnostic — swapping the casing of "test" or the separator
// around it never changes the outcome away from the *_test intent.
func TestClassifyTestPathIsCaseAndSeparatorAgnosticProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	separators := []string{"_", "-", ".", "/"}
	casings := []func(string) string{
		strings.ToLower,
		strings.ToUpper,
		strings.Title, //nolint:staticcheck // deterministic casing variant, not Unicode-sensitive here
	}

	properties.Property("test paths classify as edit_test under any case/separator variant", prop.ForAll(
		func(sepIdx, caseIdx int, stem string) bool {
			sep := separators[sepIdx%len(separators)]
			casing := casings[caseIdx%len(casings)]
			path := fmt.Sprintf("%s%stest%sgo", stem, sep, sep)
			path = casing(path)

			got := Classify(inv("Edit", map[string]any{"file_path": path}))
			return got.Has(IntentEditTest)
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
		gen.RegexMatch(`[a-z]{2,8}`),
	))

	properties.TestingRun(t)
}
