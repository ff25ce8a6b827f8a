package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillgate/skillgate/internal/model"
)

func inv(tool string, input map[string]any) model.ToolInvocation {
	return model.ToolInvocation{Tool: tool, Input: input}
}

func TestClassifyWritePathVariants(t *testing.T) {
	cases := []struct {
		path string
		want Intent
	}{
		{"FooTest.go", IntentWriteImpl},
		{"foo_test.go", IntentWriteTest},
		{"foo/test/bar.go", IntentWriteTest},
		{"internal/pkg/spec_runner.go", IntentWriteTest},
		{"README.md", IntentWriteDocs},
		{"config/app.yaml", IntentWriteConfig},
		{".github/workflows/ci.yml", IntentWriteConfig},
		{"internal/service/handler.go", IntentWriteImpl},
	}
	for _, c := range cases {
		got := Classify(inv("Write", map[string]any{"file_path": c.path}))
		assert.True(t, got.Has(IntentWrite), "path %q should carry base write intent", c.path)
		assert.True(t, got.Has(c.want), "path %q: got %v, want %v", c.path, got, c.want)
	}
}

func TestClassifyEditPathVariants(t *testing.T) {
	got := Classify(inv("Edit", map[string]any{"file_path": "src/foo.ts"}))
	assert.True(t, got.Has(IntentEdit))
	assert.True(t, got.Has(IntentEditImpl))

	got = Classify(inv("Edit", map[string]any{"file_path": "src/foo.test.ts"}))
	assert.True(t, got.Has(IntentEdit))
	assert.True(t, got.Has(IntentEditTest))
}

func TestClassifyBashRunCommand(t *testing.T) {
	got := Classify(inv("Bash", map[string]any{"command": "ls -la"}))
	assert.True(t, got.Has(IntentRun))
	assert.False(t, got.Has(IntentCommit))
}

func TestClassifyBashCompoundCommitAndPush(t *testing.T) {
	got := Classify(inv("Bash", map[string]any{"command": "git add . && git commit -m x && git push"}))
	assert.True(t, got.Has(IntentRun))
	assert.True(t, got.Has(IntentCommit))
	assert.True(t, got.Has(IntentPush))
}

func TestClassifyBashDeployAndDelete(t *testing.T) {
	got := Classify(inv("Bash", map[string]any{"command": "rm -rf dist && kubectl apply -f deploy.yaml"}))
	assert.True(t, got.Has(IntentDelete))
	assert.True(t, got.Has(IntentDeploy))
}

func TestClassifyBashWriteRedirection(t *testing.T) {
	got := Classify(inv("Bash", map[string]any{"command": "echo hi > out.txt"}))
	assert.True(t, got.Has(IntentWrite))
}

func TestClassifyReadOnlyTools(t *testing.T) {
	assert.True(t, Classify(inv("Read", map[string]any{"file_path": "x.go"})).Has(IntentRead))
	assert.True(t, Classify(inv("Grep", map[string]any{"pattern": "foo"})).Has(IntentRead))
}

func TestClassifyUnknownToolWithoutPath(t *testing.T) {
	assert.True(t, Classify(inv("SomeOtherTool", nil)).Has(IntentUnknown))
}
