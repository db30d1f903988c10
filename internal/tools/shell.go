package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Dangerous command patterns denied by default, regardless of workspace
// restriction. This is a first, cheap line of defense; it does not attempt
// to be exhaustive against a determined adversary with shell access.
var defaultDenyPatterns = []*regexp.Regexp{
	// destructive file operations
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\brm\s+.*--recursive`),
	regexp.MustCompile(`\brm\s+.*--force`),
	regexp.MustCompile(`\b(mkfs|diskpart)\b|\bformat\s`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`>\s*/dev/sd[a-z]\b`),

	// fork bomb
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),

	// power control
	regexp.MustCompile(`\b(shutdown|reboot|poweroff|halt)\b`),

	// raw device / kernel interface redirection
	regexp.MustCompile(`>\s*/dev/(mem|kmem|port)\b`),
	regexp.MustCompile(`/proc/sys/(kernel|fs|net)/`),
	regexp.MustCompile(`/sys/(kernel|fs|class|devices)/`),

	// privilege escalation
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`\bsu\s+-`),

	// secret dumping
	regexp.MustCompile(`^\s*env\s*$`),
	regexp.MustCompile(`^\s*env\s*\|`),
	regexp.MustCompile(`\bprintenv\b`),
}

// ExecTool runs a shell command with a timeout.
type ExecTool struct {
	workspace string
	timeout   time.Duration
	restrict  bool
	deny      []*regexp.Regexp
	allow     []*regexp.Regexp // when non-empty, command must match at least one
}

// NewExecTool creates an exec tool rooted at workspace.
func NewExecTool(workspace string, restrict bool, timeout time.Duration) *ExecTool {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExecTool{workspace: workspace, timeout: timeout, restrict: restrict, deny: defaultDenyPatterns}
}

// SetAllowlist restricts commands to those matching at least one pattern.
func (t *ExecTool) SetAllowlist(patterns []*regexp.Regexp) { t.allow = patterns }

func (t *ExecTool) Name() string        { return "exec" }
func (t *ExecTool) Description() string { return "Execute a shell command with a timeout and return its output" }
func (t *ExecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type": "string", "description": "the shell command to execute",
			},
			"working_dir": map[string]interface{}{
				"type": "string", "description": "optional working directory, relative to the workspace",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	command, _ := args["command"].(string)
	if command == "" {
		return ErrorResult("Error: invalid parameters for tool 'exec': command is required")
	}

	for _, pattern := range t.deny {
		if pattern.MatchString(command) {
			return ErrorResult("Error: command blocked by safety guard (dangerous pattern detected)")
		}
	}
	if len(t.allow) > 0 {
		matched := false
		for _, pattern := range t.allow {
			if pattern.MatchString(command) {
				matched = true
				break
			}
		}
		if !matched {
			return ErrorResult("Error: command blocked by safety guard (not in allowlist)")
		}
	}

	cwd := t.workspace
	if wd, _ := args["working_dir"].(string); wd != "" {
		resolved, err := resolvePath(wd, t.workspace, t.restrict)
		if err != nil {
			return ErrorResult("Error: " + err.Error())
		}
		cwd = resolved
	}

	if t.restrict {
		if err := checkWorkspaceEscape(command, t.workspace); err != nil {
			return ErrorResult("Error: " + err.Error())
		}
	}

	return t.runHost(ctx, command, cwd)
}

const execOutputCap = 10000

func (t *ExecTool) runHost(ctx context.Context, command, cwd string) *Result {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var result string
	if stdout.Len() > 0 {
		result = stdout.String()
	}
	if stderr.Len() > 0 {
		if result != "" {
			result += "\n"
		}
		result += "STDERR:\n" + stderr.String()
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return ErrorResult(fmt.Sprintf("Error: command timed out after %s", t.timeout))
	}

	if result == "" {
		result = "(command completed with no output)"
	}
	if len(result) > execOutputCap {
		result = result[:execOutputCap] + "\n[truncated]"
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	if exitCode != 0 {
		result += fmt.Sprintf("\n[exit code: %d]", exitCode)
		return ErrorResult(result)
	}

	return SilentResult(result)
}

// checkWorkspaceEscape tokenizes command and, for every token that looks
// like a path (contains '/' or starts with '.'), resolves it against the
// workspace root and rejects the command if the resolved, symlink-evaluated
// path escapes the workspace. This upgrades the regex denylist, which
// cannot see through path arguments a command is about to operate on.
func checkWorkspaceEscape(command, workspace string) error {
	for _, tok := range tokenizeShellWords(command) {
		if !strings.ContainsRune(tok, '/') && !strings.HasPrefix(tok, ".") {
			continue
		}
		if strings.HasPrefix(tok, "-") {
			continue // flag, not a path
		}
		if _, err := resolvePathAllowMissing(tok, workspace, true); err != nil {
			slog.Warn("exec: path token escapes workspace", "token", tok)
			return fmt.Errorf("command references a path outside the workspace: %s", tok)
		}
	}
	return nil
}

// tokenizeShellWords is a minimal shell-word splitter: splits on
// unquoted whitespace and strips a single layer of matching quotes.
// It does not attempt to handle nested quoting, escapes, or substitution —
// good enough to catch plain path arguments, not a full shell parser.
func tokenizeShellWords(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
