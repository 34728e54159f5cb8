package resources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/context-engine/internal/config"
)

func newHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Load(root)
	require.NoError(t, err)
	return NewHandler(cfg), root
}

func readText(t *testing.T, contents []mcp.ResourceContents) mcp.TextResourceContents {
	t.Helper()
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok, "content is %T", contents[0])
	return tc
}

func request(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestHandleConfig(t *testing.T) {
	h, root := newHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "WORK_PLAN.md"), []byte("- [x] 1 a\n- [ ] 2 b\n"), 0o644))

	got, err := h.HandleConfig(context.Background(), request(ConfigURI))
	require.NoError(t, err)
	tc := readText(t, got)
	assert.Equal(t, "application/json", tc.MIMEType)

	var view struct {
		Root     string            `json:"root"`
		Commands map[string]string `json:"commands"`
		Docs     map[string]string `json:"docs"`
		Tasks    struct {
			Total    int `json:"total"`
			Complete int `json:"complete"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &view), tc.Text)
	assert.NotEmpty(t, view.Root)
	assert.Equal(t, "WORK_PLAN.md", view.Docs["tasks"])
	assert.Equal(t, 2, view.Tasks.Total)
	assert.Equal(t, 1, view.Tasks.Complete)
}

func TestHandleTasks(t *testing.T) {
	h, root := newHandler(t)

	got, err := h.HandleTasks(context.Background(), request(TasksURI))
	require.NoError(t, err)
	tc := readText(t, got)
	assert.True(t, strings.HasPrefix(tc.Text, "Error: WORK_PLAN.md not found"), "missing file text = %q", tc.Text)

	require.NoError(t, os.WriteFile(filepath.Join(root, "WORK_PLAN.md"), []byte("- [/] 1 a\n"), 0o644))
	got, err = h.HandleTasks(context.Background(), request(TasksURI))
	require.NoError(t, err)
	tc = readText(t, got)
	assert.Equal(t, "- [/] 1 a\n", tc.Text)
	assert.Equal(t, TasksURI, tc.URI)
}

func TestHandleWorkLog(t *testing.T) {
	h, root := newHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "WORK_LOG.md"), []byte("# Work Log\n"), 0o644))

	got, err := h.HandleWorkLog(context.Background(), request(WorkLogURI))
	require.NoError(t, err)
	assert.Equal(t, "# Work Log\n", readText(t, got).Text)
}

func TestResourceDefinitions(t *testing.T) {
	h, _ := newHandler(t)
	for uri, res := range map[string]mcp.Resource{
		ConfigURI:  h.ConfigResource(),
		TasksURI:   h.TasksResource(),
		WorkLogURI: h.WorkLogResource(),
	} {
		assert.Equal(t, uri, res.URI)
	}
}
