package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m4xw311/pengy/errors"
)

// TodoTask is one entry of the persisted todo list.
type TodoTask struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TodoTool keeps a task list as JSON in the workspace.
type TodoTool struct {
	base
	path string
	mu   sync.Mutex
}

func NewTodoTool(ws *Workspace) *TodoTool {
	return &TodoTool{
		base: base{def: Definition{
			Name:        "todo",
			Description: "Manage a todo list for planning multi-step work. Use action 'read' to view tasks and 'modify' to tick, insert or delete tasks. Batch several changes with 'operations'.",
			Parameters: []Parameter{
				{Name: "action", Type: "string", Description: "Either 'read' or 'modify'.", Enum: []string{"read", "modify"}},
				{Name: "operation", Type: "string", Description: "The modification to apply when action is 'modify'.", Enum: []string{"tick", "insert", "delete"}},
				{Name: "task_id", Type: "integer", Description: "0-based index of the task to tick or delete."},
				{Name: "task_description", Type: "string", Description: "Description of the task to insert."},
				{Name: "position", Type: "integer", Description: "0-based position to insert at. Appends when omitted."},
				{Name: "operations", Type: "array", Items: "object", Description: "Batch of {operation, task_id, task_description, position} objects applied atomically."},
			},
			Required: []string{"action"},
		}},
		path: ws.TodoPath(),
	}
}

type todoOp struct {
	Operation       string  `json:"operation"`
	TaskID          flexInt `json:"task_id"`
	TaskDescription string  `json:"task_description"`
	Position        flexInt `json:"position"`
}

func (t *TodoTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Action string `json:"action"`
		todoOp
		Operations *[]todoOp `json:"operations"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch in.Action {
	case "read":
		return t.read()
	case "modify":
		tasks := t.load()
		if in.Operations != nil {
			ops := *in.Operations
			if len(ops) == 0 {
				return "", errors.Errorf(errors.KindExecution, "The 'operations' array is empty. Provide at least one operation.")
			}
			msgs := make([]string, 0, len(ops))
			for i, op := range ops {
				var (
					msg string
					err error
				)
				tasks, msg, err = applyTodoOp(tasks, op)
				if err != nil {
					return "", errors.Errorf(errors.KindExecution, "Operation %d failed: %v", i, err)
				}
				msgs = append(msgs, msg)
			}
			if err := t.save(tasks); err != nil {
				return "", err
			}
			return fmt.Sprintf("Applied %d operations:\n%s", len(msgs), strings.Join(msgs, "\n")), nil
		}
		tasks, msg, err := applyTodoOp(tasks, in.todoOp)
		if err != nil {
			return "", errors.Tag(errors.KindExecution, err)
		}
		if err := t.save(tasks); err != nil {
			return "", err
		}
		return msg, nil
	case "":
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: action")
	default:
		return "", errors.Errorf(errors.KindExecution, "Unknown action: %s. Must be 'read' or 'modify'.", in.Action)
	}
}

// applyTodoOp returns a new slice; tasks is never mutated in place.
func applyTodoOp(tasks []TodoTask, op todoOp) ([]TodoTask, string, error) {
	out := append([]TodoTask(nil), tasks...)
	switch op.Operation {
	case "tick":
		if !op.TaskID.Set {
			return tasks, "", fmt.Errorf("Missing required parameter: task_id (required for 'tick' operation)")
		}
		id := op.TaskID.Value
		if id < 0 || id >= len(out) {
			return tasks, "", fmt.Errorf("Task index %d is out of range. There are %d tasks.", id, len(out))
		}
		out[id].Completed = !out[id].Completed
		status := "uncompleted"
		if out[id].Completed {
			status = "completed"
		}
		return out, fmt.Sprintf("Task %d marked as %s.", id, status), nil
	case "insert":
		if op.TaskDescription == "" {
			return tasks, "", fmt.Errorf("Missing required parameter: task_description (required for 'insert' operation)")
		}
		task := TodoTask{Description: op.TaskDescription}
		if !op.Position.Set {
			out = append(out, task)
			return out, fmt.Sprintf("Task added to the end of the list (position %d).", len(out)-1), nil
		}
		pos := op.Position.Value
		if pos < 0 || pos > len(out) {
			return tasks, "", fmt.Errorf("Position %d is out of range. There are %d tasks. Use position <= %d to insert.", pos, len(out), len(out))
		}
		out = append(out[:pos], append([]TodoTask{task}, out[pos:]...)...)
		return out, fmt.Sprintf("Task inserted at position %d.", pos), nil
	case "delete":
		if !op.TaskID.Set {
			return tasks, "", fmt.Errorf("Missing required parameter: task_id (required for 'delete' operation)")
		}
		id := op.TaskID.Value
		if id < 0 || id >= len(out) {
			return tasks, "", fmt.Errorf("Task index %d is out of range. There are %d tasks.", id, len(out))
		}
		removed := out[id]
		out = append(out[:id], out[id+1:]...)
		return out, fmt.Sprintf("Task %d deleted: '%s'", id, removed.Description), nil
	case "":
		return tasks, "", fmt.Errorf("Missing required parameter: operation (required when action is 'modify')")
	default:
		return tasks, "", fmt.Errorf("Unknown operation: %s. Must be 'tick', 'insert', or 'delete'.", op.Operation)
	}
}

func (t *TodoTool) read() (string, error) {
	tasks := t.load()
	if len(tasks) == 0 {
		return "Todo list is empty. Use 'modify' action with 'insert' operation to add tasks.", nil
	}
	var b strings.Builder
	b.WriteString("Current todo list:\n")
	done := 0
	for i, task := range tasks {
		mark := " "
		if task.Completed {
			mark = "x"
			done++
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, mark, task.Description)
	}
	fmt.Fprintf(&b, "\nSummary: %d of %d tasks completed.", done, len(tasks))
	return b.String(), nil
}

// load treats a missing or corrupt file as an empty list.
func (t *TodoTool) load() []TodoTask {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil
	}
	var tasks []TodoTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil
	}
	return tasks
}

func (t *TodoTool) save(tasks []TodoTask) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return errors.Wrapf(err, "could not create todo directory")
	}
	if tasks == nil {
		tasks = []TodoTask{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshaling todo list")
	}
	return os.WriteFile(t.path, data, 0644)
}
