package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/pengy/errors"
)

const defaultMaxLines = 250

// ReadFileTool reads a whole file or a window of lines.
type ReadFileTool struct {
	base
	ws *Workspace
}

func NewReadFileTool(ws *Workspace) *ReadFileTool {
	return &ReadFileTool{
		base: base{def: Definition{
			Name:        "read_file",
			Description: "Read a file entirely or a line slice; if no range is given, the whole file is returned. Slices are prefixed with line numbers.",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "Path to the file to read (absolute or relative to the workspace)."},
				{Name: "whole", Type: "boolean", Description: "If true, read the whole file."},
				{Name: "start_line", Type: "integer", Description: "1-based start line (inclusive) when reading a slice."},
				{Name: "end_line", Type: "integer", Description: "1-based end line (inclusive) when reading a slice."},
			},
			Required: []string{"path"},
		}},
		ws: ws,
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Path       string   `json:"path"`
		TargetFile string   `json:"target_file"`
		Whole      flexBool `json:"whole"`
		StartLine  flexInt  `json:"start_line"`
		EndLine    flexInt  `json:"end_line"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == "" {
		in.Path = in.TargetFile
	}
	abs, err := t.ws.CheckRead(in.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "File not found: %s", in.Path))
	}
	if info.IsDir() {
		return "", errors.Errorf(errors.KindExecution, "Path is a directory, not a file: %s", in.Path)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to read file '%s'", in.Path))
	}
	if bool(in.Whole) || (!in.StartLine.Set && !in.EndLine.Set) {
		return string(content), nil
	}
	return sliceLines(string(content), in.StartLine, in.EndLine), nil
}

func sliceLines(content string, startArg, endArg flexInt) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if content == "" {
		return "File is empty."
	}
	start := 1
	if startArg.Set && startArg.Value > 0 {
		start = startArg.Value
	}
	end := start + defaultMaxLines - 1
	if endArg.Set {
		end = endArg.Value
	}
	if end < start {
		end = start
	}
	if end-start+1 > defaultMaxLines {
		end = start + defaultMaxLines - 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return fmt.Sprintf("Start line %d is past the end of the file (%d lines).", start, len(lines))
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "L%d:%s", i, lines[i-1])
	}
	return b.String()
}

// WriteFileTool implements the tool for writing to a file.
type WriteFileTool struct {
	base
	ws *Workspace
}

func NewWriteFileTool(ws *Workspace) *WriteFileTool {
	return &WriteFileTool{
		base: base{def: Definition{
			Name:        "write_file",
			Description: "Writes content to a file, replacing it entirely. Parent directories are created.",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "Path of the file to write."},
				{Name: "content", Type: "string", Description: "The full new content of the file."},
			},
			Required: []string{"path", "content"},
		}},
		ws: ws,
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Path    *string `json:"path"`
		Content *string `json:"content"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == nil || in.Content == nil {
		return "", errors.Errorf(errors.KindExecution, "missing or invalid 'path' or 'content' arguments")
	}
	abs, err := t.ws.CheckWrite(*in.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to create directory for '%s'", *in.Path))
	}
	if err := os.WriteFile(abs, []byte(*in.Content), 0644); err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to write to file '%s'", *in.Path))
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(*in.Content), *in.Path), nil
}

// FindReplaceTool replaces every occurrence of a literal string in a file.
type FindReplaceTool struct {
	base
	ws *Workspace
}

func NewFindReplaceTool(ws *Workspace) *FindReplaceTool {
	return &FindReplaceTool{
		base: base{def: Definition{
			Name:        "find_replace",
			Description: "Replace every occurrence of an exact text snippet in a file.",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "Path to the file to modify."},
				{Name: "search", Type: "string", Description: "Exact text to search for within the file."},
				{Name: "replace", Type: "string", Description: "Replacement text to insert for every match."},
			},
			Required: []string{"path", "search", "replace"},
		}},
		ws: ws,
	}
}

func (t *FindReplaceTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Path    string `json:"path"`
		Search  string `json:"search"`
		Replace string `json:"replace"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Search == "" {
		return "", errors.Errorf(errors.KindExecution, "search cannot be empty")
	}
	if in.Search == in.Replace {
		return "", errors.Errorf(errors.KindExecution, "search and replace must differ")
	}
	abs, err := t.ws.CheckWrite(in.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "File does not exist: %s", in.Path))
	}
	content := string(data)
	n := strings.Count(content, in.Search)
	if n == 0 {
		return "", errors.Errorf(errors.KindExecution, "No matches for search were found in %s", in.Path)
	}
	if err := os.WriteFile(abs, []byte(strings.ReplaceAll(content, in.Search, in.Replace)), 0644); err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to write to file '%s'", in.Path))
	}
	return fmt.Sprintf("Replaced %d occurrence(s) in %s", n, in.Path), nil
}
