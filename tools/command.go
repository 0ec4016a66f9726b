package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m4xw311/pengy/errors"
	"github.com/mattn/go-shellwords"
)

const maxCommandOutput = 30000

// ExecuteCommandTool runs an allow-listed program directly, without a shell.
type ExecuteCommandTool struct {
	base
	ws *Workspace
}

func NewExecuteCommandTool(ws *Workspace) *ExecuteCommandTool {
	desc := "Executes a command in the workspace without a shell. No commands are currently allowed."
	if len(ws.AllowedCommands) > 0 {
		allowedList := "Allowed command patterns:\n"
		for _, cmd := range ws.AllowedCommands {
			allowedList += fmt.Sprintf("- %s\n", cmd)
		}
		desc = "Executes a command in the workspace without a shell.\n" + allowedList
	}
	return &ExecuteCommandTool{
		base: base{def: Definition{
			Name:        "execute_command",
			Description: desc,
			Parameters: []Parameter{
				{Name: "command", Type: "string", Description: "The command line to run. Quoting follows shell rules."},
			},
			Required: []string{"command"},
		}},
		ws: ws,
	}
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Command string `json:"command"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Command) == "" {
		return "", errors.Errorf(errors.KindExecution, "missing or invalid 'command' argument")
	}
	if !isCommandAllowed(in.Command, t.ws.AllowedCommands) {
		return "", errors.Errorf(errors.KindPolicy, "command '%s' is not in the list of allowed commands", in.Command)
	}

	parts, err := shellwords.Parse(in.Command)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "could not parse command"))
	}
	if len(parts) == 0 {
		return "", errors.Errorf(errors.KindExecution, "empty command")
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = t.ws.Root

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Tag(errors.KindExecution,
			errors.Wrapf(err, "command execution failed. Output:\n%s", truncate(string(output), maxCommandOutput)))
	}
	return fmt.Sprintf("Command executed successfully. Output:\n%s", truncate(string(output), maxCommandOutput)), nil
}

// BashTool runs commands through bash. The working directory carries over
// between calls until the session is restarted.
type BashTool struct {
	base
	ws *Workspace

	mu  sync.Mutex
	cwd string
}

func NewBashTool(ws *Workspace) *BashTool {
	return &BashTool{
		base: base{def: Definition{
			Name:        "bash",
			Description: "Execute bash commands in a persistent shell session. The working directory is kept between calls. Write files inside the workspace using relative paths. Use restart to reset the session.",
			Parameters: []Parameter{
				{Name: "cmd", Type: "string", Description: "The bash command to execute."},
				{Name: "restart", Type: "boolean", Description: "If true, reset the working directory to the workspace root before running the command."},
			},
			Required: []string{"cmd"},
		}},
		ws:  ws,
		cwd: ws.Root,
	}
}

// pwdMarker separates command output from the trailing pwd.
const pwdMarker = "__PENGY_PWD__"

func (t *BashTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Cmd     string   `json:"cmd"`
		Command string   `json:"command"`
		Restart flexBool `json:"restart"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Cmd == "" {
		in.Cmd = in.Command
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if bool(in.Restart) {
		t.cwd = t.ws.Root
	}
	if strings.TrimSpace(in.Cmd) == "" {
		if in.Restart {
			return "Session restarted", nil
		}
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: cmd")
	}
	if _, err := os.Stat(t.cwd); err != nil {
		t.cwd = t.ws.Root
	}

	script := fmt.Sprintf("%s\n__pengy_status=$?\nprintf '\\n%s%%s' \"$(pwd)\"\nexit $__pengy_status", in.Cmd, pwdMarker)
	cmd := exec.CommandContext(ctx, "bash", "-c", script)
	cmd.Dir = t.cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	out := stdout.String()
	if i := strings.LastIndex(out, pwdMarker); i >= 0 {
		if dir := strings.TrimSpace(out[i+len(pwdMarker):]); dir != "" && filepath.IsAbs(dir) {
			t.cwd = dir
		}
		out = out[:i]
	}
	out = strings.TrimSpace(out)
	if s := strings.TrimSpace(stderr.String()); s != "" {
		if out != "" {
			out += "\nSTDERR:\n"
		}
		out += s
	}
	out = truncate(out, maxCommandOutput)

	if runErr != nil {
		if ctx.Err() != nil {
			return "", errors.Tag(errors.KindExecution, ctx.Err())
		}
		code := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return "", errors.Errorf(errors.KindExecution, "Command failed with exit code %d: %s", code, out)
	}
	if out == "" {
		return "Command executed successfully (no output)", nil
	}
	return out, nil
}

// Cwd reports the session's current directory.
func (t *BashTool) Cwd() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}
