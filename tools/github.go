package tools

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/m4xw311/pengy/errors"
)

// Runner executes an external program in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

const (
	prViewFields    = "number,title,body,state,author,createdAt,updatedAt,headRefName,baseRefName,url,mergeable,isDraft,labels,reviewDecision"
	prListFields    = "number,title,state,author,createdAt,updatedAt,headRefName,baseRefName,url,isDraft,labels"
	issueViewFields = "number,title,body,state,author,createdAt,updatedAt,url,labels,assignees,comments,closed"
	issueListFields = "number,title,state,author,createdAt,updatedAt,url,labels,assignees"
)

// GitHubTool wraps the gh CLI for pull requests and issues.
type GitHubTool struct {
	base
	ws  *Workspace
	run Runner
}

// NewGitHubTool creates the tool; a nil runner executes gh for real.
func NewGitHubTool(ws *Workspace, run Runner) *GitHubTool {
	if run == nil {
		run = execRunner
	}
	return &GitHubTool{
		base: base{def: Definition{
			Name:        "github",
			Description: "Interact with GitHub through the gh CLI: view and list pull requests and issues, create issues and pull requests.",
			Parameters: []Parameter{
				{Name: "action", Type: "string", Description: "The GitHub action to perform.",
					Enum: []string{"view_pr", "list_prs", "view_issue", "list_issues", "create_issue", "create_pr"}},
				{Name: "pr_number", Type: "integer", Description: "Pull request number (view_pr)."},
				{Name: "issue_number", Type: "integer", Description: "Issue number (view_issue)."},
				{Name: "state", Type: "string", Description: "Filter by state for list actions: open, closed, merged or all. Defaults to open."},
				{Name: "limit", Type: "integer", Description: "Maximum number of items for list actions."},
				{Name: "repo", Type: "string", Description: "Repository in OWNER/REPO form. Defaults to the current repository."},
				{Name: "title", Type: "string", Description: "Title for create_issue and create_pr."},
				{Name: "body", Type: "string", Description: "Body for create_issue and create_pr."},
				{Name: "labels", Type: "array", Items: "string", Description: "Labels for create_issue."},
				{Name: "head", Type: "string", Description: "Head branch for create_pr."},
				{Name: "base", Type: "string", Description: "Base branch for create_pr."},
				{Name: "draft", Type: "boolean", Description: "Create the pull request as a draft."},
			},
			Required: []string{"action"},
		}},
		ws:  ws,
		run: run,
	}
}

// stringList accepts ["a","b"] or "a,b".
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	for _, part := range strings.Split(one, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

type githubArgs struct {
	Action      string     `json:"action"`
	PRNumber    flexInt    `json:"pr_number"`
	IssueNumber flexInt    `json:"issue_number"`
	State       string     `json:"state"`
	Limit       flexInt    `json:"limit"`
	Repo        string     `json:"repo"`
	Title       string     `json:"title"`
	Body        *string    `json:"body"`
	Labels      stringList `json:"labels"`
	Head        string     `json:"head"`
	Base        string     `json:"base"`
	Draft       flexBool   `json:"draft"`
}

func (t *GitHubTool) Execute(ctx context.Context, args string) (string, error) {
	var in githubArgs
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	ghArgs, failure, err := buildGHArgs(in)
	if err != nil {
		return "", err
	}
	out, err := t.run(ctx, t.ws.Root, "gh", ghArgs...)
	if err != nil {
		return "", errors.Tag(errors.KindExecution,
			errors.Wrapf(err, "%s: %s", failure, strings.TrimSpace(string(out))))
	}
	return strings.TrimSpace(string(out)), nil
}

func missing(param, action string) error {
	return errors.Errorf(errors.KindExecution, "Missing required parameter: %s (required for %s action)", param, action)
}

// buildGHArgs maps an action to gh arguments and the failure prefix used
// when gh exits non-zero.
func buildGHArgs(in githubArgs) ([]string, string, error) {
	var args []string
	var failure string
	listState := func() {
		state := in.State
		if state == "" {
			state = "open"
		}
		args = append(args, "--state", state)
		if in.Limit.Set && in.Limit.Value > 0 {
			args = append(args, "--limit", strconv.Itoa(in.Limit.Value))
		}
	}

	switch in.Action {
	case "view_pr":
		if !in.PRNumber.Set {
			return nil, "", missing("pr_number", in.Action)
		}
		args = []string{"pr", "view", strconv.Itoa(in.PRNumber.Value), "--json", prViewFields}
		failure = "Failed to view PR"
	case "list_prs":
		args = []string{"pr", "list", "--json", prListFields}
		listState()
		failure = "Failed to list PRs"
	case "view_issue":
		if !in.IssueNumber.Set {
			return nil, "", missing("issue_number", in.Action)
		}
		args = []string{"issue", "view", strconv.Itoa(in.IssueNumber.Value), "--json", issueViewFields}
		failure = "Failed to view issue"
	case "list_issues":
		args = []string{"issue", "list", "--json", issueListFields}
		listState()
		failure = "Failed to list issues"
	case "create_issue":
		if in.Title == "" {
			return nil, "", missing("title", in.Action)
		}
		if in.Body == nil {
			return nil, "", missing("body", in.Action)
		}
		args = []string{"issue", "create", "--title", in.Title, "--body", *in.Body}
		if len(in.Labels) > 0 {
			args = append(args, "--label", strings.Join(in.Labels, ","))
		}
		failure = "Failed to create issue"
	case "create_pr":
		if in.Title == "" {
			return nil, "", missing("title", in.Action)
		}
		if in.Body == nil {
			return nil, "", missing("body", in.Action)
		}
		if in.Head == "" {
			return nil, "", missing("head", in.Action)
		}
		args = []string{"pr", "create", "--title", in.Title, "--body", *in.Body, "--head", in.Head}
		if in.Base != "" {
			args = append(args, "--base", in.Base)
		}
		if in.Draft {
			args = append(args, "--draft")
		}
		failure = "Failed to create PR"
	case "":
		return nil, "", errors.Errorf(errors.KindExecution, "Missing required parameter: action")
	default:
		return nil, "", errors.Errorf(errors.KindExecution,
			"Unknown action: %s. Supported actions: view_pr, list_prs, view_issue, list_issues, create_issue, create_pr", in.Action)
	}
	if in.Repo != "" {
		args = append(args, "--repo", in.Repo)
	}
	return args, failure, nil
}
