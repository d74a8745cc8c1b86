// Package sandbox implements the Tool Registry & Sandbox (§4.C): a
// hook-gated tool registry plus the shell command and file-write policies
// every shell-executing tool is run through.
package sandbox

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// deniedCommandHeads are command heads blocked per pipeline segment,
// grounded on the donor's dangerous-token table in
// internal/tools/security/shell_parser.go, redesigned as a head denylist
// rather than a metacharacter denylist (the spec distinguishes "denylisted
// command" from "denylisted pattern").
var deniedCommandHeads = map[string]bool{
	"rm": true, "sudo": true, "dd": true, "mkfs": true, "fdisk": true,
	"chmod": true, "chown": true, "kill": true, "pkill": true, "killall": true,
	"reboot": true, "shutdown": true, "halt": true, "poweroff": true,
	"mount": true, "umount": true, "iptables": true, "systemctl": true,
	"passwd": true, "useradd": true, "userdel": true, "nc": true, "ncat": true,
}

// deniedPatterns catch command substitution, sensitive-path writes/reads,
// traversal, and disk-writing downloads. Evaluated against the whole
// command, before segment splitting, since these patterns are dangerous
// regardless of pipeline position.
var deniedPatterns = []*regexp.Regexp{
	regexp.MustCompile("`"),
	regexp.MustCompile(`\$\(`),
	regexp.MustCompile(`\$\{`),
	regexp.MustCompile(`>\s*/etc/`),
	regexp.MustCompile(`>\s*/usr/`),
	regexp.MustCompile(`>\s*/boot/`),
	regexp.MustCompile(`>\s*~/\.ssh`),
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`/etc/(shadow|passwd|sudoers)`),
	regexp.MustCompile(`~/\.ssh/id_`),
	regexp.MustCompile(`\.env\b`),
	regexp.MustCompile(`curl\b[^|;&]*(-o\b|--output\b)`),
	regexp.MustCompile(`wget\b[^|;&]*(-O\b|--output-document\b)`),
}

// ShellVerdict is the result of evaluating a shell command against policy.
type ShellVerdict struct {
	Blocked bool
	Reason  string
}

// CheckShellCommand evaluates raw against the shell sandbox policy
// (§4.C). workspaceRoot bounds any `cd` segment.
func CheckShellCommand(raw, workspaceRoot string) ShellVerdict {
	cmd := strings.TrimSpace(raw)
	cmd = strings.TrimPrefix(cmd, "nohup ")
	cmd = strings.TrimSuffix(strings.TrimSpace(cmd), "&")
	cmd = strings.TrimSpace(cmd)

	for _, pat := range deniedPatterns {
		if pat.MatchString(cmd) {
			return ShellVerdict{Blocked: true, Reason: fmt.Sprintf("denylisted pattern: %s", pat.String())}
		}
	}

	for _, segment := range splitPipeline(cmd) {
		head := commandHead(segment)
		if deniedCommandHeads[head] {
			return ShellVerdict{Blocked: true, Reason: fmt.Sprintf("denylisted command: %s", head)}
		}
		if head == "cd" {
			if v := checkCD(segment, workspaceRoot); v.Blocked {
				return v
			}
		}
	}

	return ShellVerdict{}
}

// splitPipeline splits cmd on unquoted |, ;, and &. && and || split the
// same way, since the empty segment between their two characters is
// dropped; every resulting segment is denylist-checked on its own.
func splitPipeline(cmd string) []string {
	var segments []string
	var buf strings.Builder
	inSingle, inDouble := false, false
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			buf.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			buf.WriteByte(c)
		case !inSingle && !inDouble && (c == '|' || c == ';' || c == '&'):
			segments = append(segments, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}
	segments = append(segments, buf.String())

	out := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func commandHead(segment string) string {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return ""
	}
	head := fields[0]
	if idx := strings.LastIndex(head, "/"); idx >= 0 {
		head = head[idx+1:]
	}
	return head
}

func checkCD(segment, workspaceRoot string) ShellVerdict {
	fields := strings.Fields(segment)
	if len(fields) < 2 || workspaceRoot == "" {
		return ShellVerdict{}
	}
	target := fields[1]
	if !filepath.IsAbs(target) {
		target = filepath.Join(workspaceRoot, target)
	}
	target = filepath.Clean(target)
	root := filepath.Clean(workspaceRoot)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return ShellVerdict{Blocked: true, Reason: "cd target escapes workspace root"}
	}
	return ShellVerdict{}
}

const maxShellOutputBytes = 100 * 1024

// TruncateOutput caps out at 100KB, appending an explicit marker (§4.C).
func TruncateOutput(out string) string {
	if len(out) <= maxShellOutputBytes {
		return out
	}
	return out[:maxShellOutputBytes] + fmt.Sprintf("\n[... output truncated, %d bytes total ...]", len(out))
}
