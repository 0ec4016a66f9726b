package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	dir  string
	name string
	args []string
}

func TestGitHubToolBuildsCommands(t *testing.T) {
	ws := newTestWorkspace(t)
	var got recordedRun
	tool := NewGitHubTool(ws, func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		got = recordedRun{dir: dir, name: name, args: args}
		return []byte("  ok\n"), nil
	})
	ctx := context.Background()

	tests := []struct {
		name string
		args string
		want []string
	}{
		{"view pr", `{"action":"view_pr","pr_number":"42"}`,
			[]string{"pr", "view", "42", "--json", prViewFields}},
		{"list prs defaults to open", `{"action":"list_prs","limit":5,"repo":"o/r"}`,
			[]string{"pr", "list", "--json", prListFields, "--state", "open", "--limit", "5", "--repo", "o/r"}},
		{"view issue", `{"action":"view_issue","issue_number":7}`,
			[]string{"issue", "view", "7", "--json", issueViewFields}},
		{"list issues", `{"action":"list_issues","state":"closed"}`,
			[]string{"issue", "list", "--json", issueListFields, "--state", "closed"}},
		{"create issue", `{"action":"create_issue","title":"Bug","body":"steps","labels":"bug, ui"}`,
			[]string{"issue", "create", "--title", "Bug", "--body", "steps", "--label", "bug,ui"}},
		{"create draft pr", `{"action":"create_pr","title":"Fix","body":"","head":"fix-1","base":"main","draft":true}`,
			[]string{"pr", "create", "--title", "Fix", "--body", "", "--head", "fix-1", "--base", "main", "--draft"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tool.Execute(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
			assert.Equal(t, "gh", got.name)
			assert.Equal(t, ws.Root, got.dir)
			assert.Equal(t, tt.want, got.args)
		})
	}
}

func TestGitHubToolErrors(t *testing.T) {
	calls := 0
	tool := NewGitHubTool(newTestWorkspace(t), func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		calls++
		return []byte("HTTP 404: Not Found"), fmt.Errorf("exit status 1")
	})
	ctx := context.Background()

	for _, args := range []string{
		`{}`,
		`{"action":"merge_pr"}`,
		`{"action":"view_pr"}`,
		`{"action":"create_issue","title":"t"}`,
		`{"action":"create_pr","title":"t","body":"b"}`,
	} {
		_, err := tool.Execute(ctx, args)
		assert.Error(t, err, args)
	}
	assert.Equal(t, 0, calls)

	_, err := tool.Execute(ctx, `{"action":"view_issue","issue_number":1}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to view issue")
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, 1, calls)
}
