// Package sanitizer screens raw command strings against a platform-aware
// denylist before they may reach a process.
package sanitizer

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
)

// Verdict is the outcome of sanitizing one raw command.
type Verdict struct {
	IsSafe  bool   `json:"is_safe"`
	Cleaned string `json:"cleaned_command"`
	Reason  string `json:"reason,omitempty"`
}

type rule struct {
	pattern *regexp.Regexp
	name    string
}

func compileRules(specs [][2]string) []rule {
	rules := make([]rule, 0, len(specs))
	for _, spec := range specs {
		rules = append(rules, rule{
			pattern: regexp.MustCompile("(?i)" + spec[0]),
			name:    spec[1],
		})
	}
	return rules
}

// unixForbidden are commands that never execute on the unix family.
var unixForbidden = [][2]string{
	{`\brm\s+(-[a-z]+\s+)*-[a-z]*r[a-z]*\s+/+(\s|$|\*)`, "recursive removal of the filesystem root"},
	{`\bdd\s+.*\bof=/dev/(sd|hd|nvme|vd)`, "raw write to a block device"},
	{`>\s*/dev/(sd|hd|nvme|vd)[a-z0-9]*`, "redirect onto a block device"},
	{`\bmkfs(\.\w+)?\b`, "filesystem format command"},
	{`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`, "fork bomb"},
	{`\bchmod\s+(-[a-z]+\s+)*777\s+/(\s|$)`, "world-writable permissions on the filesystem root"},
	{`\b(curl|wget)\b[^|]*\|\s*(ba|z|da)?sh\b`, "piping a remote download into a shell"},
	{`\b(shutdown|reboot|halt|poweroff)\b`, "system shutdown or reboot"},
	{`\bmv\s+\S+\s+/dev/null\b`, "moving files into /dev/null"},
}

// windowsForbidden are the equivalent destructive idioms on Windows. These
// must stay disjoint from the unix set: a pattern unique to one platform
// must never fire on the other.
var windowsForbidden = [][2]string{
	{`\bformat\s+[a-z]:`, "disk format command"},
	{`\bdel\s+/[sq]\s+[a-z]:\\`, "recursive deletion of a drive root"},
	{`\brd\s+/s\b`, "recursive directory removal"},
	{`\breg\s+delete\b`, "registry deletion"},
	{`\btaskkill\s+/f\s+/t\b`, "forced process-tree kill"},
	{`\bvssadmin\s+delete\s+shadows\b`, "shadow copy deletion"},
	{`\bremove-item\b.*-recurse.*(c:\\(windows|users)|\$env:systemroot)`, "recursive removal of a system directory"},
	{`\bstop-computer\b`, "system shutdown"},
	{`\bdiskpart\b`, "disk partitioning utility"},
}

// unixDangerous execute only after explicit confirmation.
var unixDangerous = [][2]string{
	{`\brm\s+(-[a-z]+\s+)*-[a-z]*r[a-z]*`, "recursive file deletion"},
	{`\brm\s+\S*\*`, "bulk file deletion with wildcards"},
	{`\bsudo\b`, "privilege escalation"},
	{`\bkillall\b|\bpkill\b`, "bulk process termination"},
	{`\bgit\s+push\s+(.*--force|-f\b)`, "force push"},
	{`\bgit\s+reset\s+--hard\b`, "hard reset of the working tree"},
	{`\bgit\s+clean\s+(-[a-z]*f|.*--force)`, "forced clean of untracked files"},
}

var windowsDangerous = [][2]string{
	{`\bdel\s+/q\b`, "quiet bulk deletion"},
	{`\bremove-item\b.*-force\b`, "forced item removal"},
	{`\bgit\s+push\s+(.*--force|-f\b)`, "force push"},
	{`\bgit\s+reset\s+--hard\b`, "hard reset of the working tree"},
}

// Sanitizer holds one platform's immutable rule set. It is safe for
// concurrent use; nothing is mutated after construction.
type Sanitizer struct {
	platform  string
	forbidden []rule
	dangerous []rule
	bashLang  *tree_sitter.Language
}

// New builds a Sanitizer for the host platform.
func New() *Sanitizer {
	return NewForPlatform(runtime.GOOS)
}

// NewForPlatform builds a Sanitizer for an explicit platform family
// ("windows" or anything else for the unix family). Exposed so tests can
// verify rule-set disjointness across platforms.
func NewForPlatform(platform string) *Sanitizer {
	s := &Sanitizer{platform: platform}
	if platform == "windows" {
		s.forbidden = compileRules(windowsForbidden)
		s.dangerous = compileRules(windowsDangerous)
		return s
	}
	s.forbidden = compileRules(unixForbidden)
	s.dangerous = compileRules(unixDangerous)
	s.bashLang = tree_sitter.NewLanguage(tree_sitter_bash.Language())
	return s
}

// Platform reports which rule set this sanitizer was built with.
func (s *Sanitizer) Platform() string {
	return s.platform
}

// Sanitize screens one raw command string. The first forbidden match
// short-circuits; a clean command comes back normalized.
func (s *Sanitizer) Sanitize(raw string) Verdict {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Verdict{IsSafe: false, Reason: "empty command"}
	}

	for _, r := range s.forbidden {
		if r.pattern.MatchString(cleaned) {
			return Verdict{
				IsSafe: false,
				Reason: fmt.Sprintf("command contains forbidden pattern: %s", r.name),
			}
		}
	}

	if s.bashLang != nil {
		if err := s.checkShellSyntax(cleaned); err != nil {
			return Verdict{IsSafe: false, Reason: err.Error()}
		}
	}

	return Verdict{IsSafe: true, Cleaned: cleaned}
}

// RequiresConfirmation reports whether the command matches the dangerous
// tier and therefore needs an explicit approval before execution.
func (s *Sanitizer) RequiresConfirmation(command string) (bool, string) {
	for _, r := range s.dangerous {
		if r.pattern.MatchString(command) {
			return true, r.name
		}
	}
	return false, ""
}

// checkShellSyntax parses the command with the bash grammar and rejects
// input the shell itself could not parse (unbalanced quotes, dangling
// redirects). A fresh parser per call keeps the Sanitizer lock-free.
func (s *Sanitizer) checkShellSyntax(command string) error {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.bashLang); err != nil {
		// Grammar mismatch is a build problem, not a property of the input.
		return nil
	}

	tree := parser.Parse([]byte(command), nil)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root != nil && root.HasError() {
		return fmt.Errorf("unbalanced or malformed shell syntax")
	}
	return nil
}
