package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/pengy/errors"
)

// DocsDirName is the workspace folder where agents keep research notes.
const DocsDirName = "pengy_docs"

const defaultDocsContext = 10

// DocsTool creates, reads and searches notes under the workspace's docs folder.
// Notes are how the pipeline stages hand findings to each other.
type DocsTool struct {
	base
	ws *Workspace
}

func NewDocsTool(ws *Workspace) *DocsTool {
	return &DocsTool{
		base: base{def: Definition{
			Name:        "docs_researcher",
			Description: "Manage documents in the '" + DocsDirName + "' folder. Use 'create' to write a document, 'read' to read a whole document, or 'search' to find a term in a document with surrounding lines. The folder is created when needed.",
			Parameters: []Parameter{
				{Name: "action", Type: "string", Description: "The action to perform.", Enum: []string{"create", "read", "search"}},
				{Name: "file_name", Type: "string", Description: "Document to create. Required for 'create'."},
				{Name: "content", Type: "string", Description: "Text to write for 'create', or the term to look for with 'search'."},
				{Name: "file", Type: "string", Description: "Document to read or search. Required for 'read' and 'search'."},
				{Name: "context_lines", Type: "integer", Description: "Lines shown above and below each match (default: 10)."},
			},
			Required: []string{"action"},
		}},
		ws: ws,
	}
}

func (t *DocsTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Action       string  `json:"action"`
		FileName     string  `json:"file_name"`
		Content      *string `json:"content"`
		File         string  `json:"file"`
		ContextLines flexInt `json:"context_lines"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}

	switch in.Action {
	case "create":
		if in.FileName == "" {
			return "", errors.Errorf(errors.KindExecution, "Missing required parameter: file_name (required for 'create' action)")
		}
		if in.Content == nil {
			return "", errors.Errorf(errors.KindExecution, "Missing required parameter: content (required for 'create' action)")
		}
		return t.create(in.FileName, *in.Content)
	case "read":
		if in.File == "" {
			return "", errors.Errorf(errors.KindExecution, "Missing required parameter: file (required for 'read' action)")
		}
		abs, err := t.existing(in.File)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to read document '%s'", in.File))
		}
		return string(data), nil
	case "search":
		if in.File == "" {
			return "", errors.Errorf(errors.KindExecution, "Missing required parameter: file (required for 'search' action)")
		}
		if in.Content == nil || *in.Content == "" {
			return "", errors.Errorf(errors.KindExecution, "Missing required parameter: content (the search term for 'search' action)")
		}
		abs, err := t.existing(in.File)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to read document '%s'", in.File))
		}
		n := defaultDocsContext
		if in.ContextLines.Set && in.ContextLines.Value >= 0 {
			n = in.ContextLines.Value
		}
		return searchLines(string(data), *in.Content, in.File, n), nil
	default:
		return "", errors.Errorf(errors.KindExecution, "Unknown action: %s. Must be 'create', 'read', or 'search'.", in.Action)
	}
}

func (t *DocsTool) create(name, content string) (string, error) {
	rel, err := docPath(name)
	if err != nil {
		return "", err
	}
	abs, err := t.ws.CheckWrite(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to create %s folder", DocsDirName))
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to write document '%s'", name))
	}
	return fmt.Sprintf("Document '%s' created successfully in %s folder.", name, DocsDirName), nil
}

func (t *DocsTool) existing(name string) (string, error) {
	rel, err := docPath(name)
	if err != nil {
		return "", err
	}
	abs, err := t.ws.CheckRead(rel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", errors.Errorf(errors.KindExecution, "File '%s' not found in %s folder.", name, DocsDirName)
	}
	return abs, nil
}

// docPath maps a document name to its workspace-relative path. Names may
// contain subfolders but never leave the docs folder.
func docPath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf(errors.KindPolicy, "document name '%s' must stay inside the %s folder", name, DocsDirName)
	}
	return filepath.Join(DocsDirName, clean), nil
}

// searchLines returns every case-insensitive match of term with n lines of
// context, the matching line marked with ">>>".
func searchLines(content, term, file string, n int) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	needle := strings.ToLower(term)
	var out []string
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		if len(out) > 0 {
			out = append(out, "---")
		}
		for j := max(0, i-n); j < min(len(lines), i+n+1); j++ {
			prefix := "    "
			if j == i {
				prefix = ">>> "
			}
			out = append(out, fmt.Sprintf("%s%d: %s", prefix, j+1, lines[j]))
		}
	}
	if len(out) == 0 {
		return fmt.Sprintf("No matches found for '%s' in file '%s'.", term, file)
	}
	return strings.Join(out, "\n")
}
