package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m4xw311/pengy/errors"
)

const maxGrepMatches = 200

var skipDirs = map[string]bool{".git": true, "node_modules": true, "target": true, "vendor": true}

// GrepTool searches file contents with a regular expression.
type GrepTool struct {
	base
	ws *Workspace
}

func NewGrepTool(ws *Workspace) *GrepTool {
	return &GrepTool{
		base: base{def: Definition{
			Name:        "grep",
			Description: "Search file contents using a regular expression. Returns matching lines as path:line:text.",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "The regular expression to search for."},
				{Name: "path", Type: "string", Description: "The directory to search in. Defaults to the workspace root."},
				{Name: "include", Type: "string", Description: "File glob to include (e.g. '*.go', '**/*.{ts,tsx}'). Searches all files if omitted."},
			},
			Required: []string{"pattern"},
		}},
		ws: ws,
	}
}

func (t *GrepTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Include string `json:"include"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Pattern == "" {
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: pattern")
	}
	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "invalid pattern"))
	}
	if in.Path == "" {
		in.Path = "."
	}
	root, err := t.ws.CheckRead(in.Path)
	if err != nil {
		return "", err
	}
	include := in.Include
	if include != "" && !strings.ContainsAny(include, "*?[{") {
		include = "*" + include
	}

	var matches []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel := t.ws.Rel(path)
		if d.IsDir() {
			if path != root && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden, _ := isPathRestricted(rel, t.ws.Access.Hidden); hidden {
			return nil
		}
		if include != "" {
			ok, _ := doublestar.Match(include, d.Name())
			if !ok {
				ok, _ = doublestar.PathMatch(include, rel)
			}
			if !ok {
				return nil
			}
		}
		if len(matches) >= maxGrepMatches {
			return filepath.SkipAll
		}
		matches = append(matches, grepFile(path, rel, re, maxGrepMatches-len(matches))...)
		return nil
	})
	if walkErr != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(walkErr, "search failed"))
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No matches found for pattern '%s' in %s", in.Pattern, in.Path), nil
	}
	out := strings.Join(matches, "\n")
	if len(matches) >= maxGrepMatches {
		out += fmt.Sprintf("\n...[stopped after %d matches]", maxGrepMatches)
	}
	return out, nil
}

func grepFile(path, rel string, re *regexp.Regexp, limit int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() && len(out) < limit {
		line++
		text := scanner.Text()
		if strings.IndexByte(text, 0) >= 0 {
			// binary file
			return out
		}
		if re.MatchString(text) {
			out = append(out, fmt.Sprintf("%s:%d:%s", rel, line, text))
		}
	}
	return out
}
