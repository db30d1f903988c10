// Package skills discovers SKILL.md documents under a workspace and gates
// them against the binaries and environment variables they declare.
package skills

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFilename is the expected filename inside each skill directory.
const SkillFilename = "SKILL.md"

// Requires lists the binaries and environment variables a skill needs to be
// considered available.
type Requires struct {
	Bins []string `yaml:"bins"`
	Env  []string `yaml:"env"`
}

// clawaiMeta is the nested object this runtime recognizes inside a skill's
// metadata JSON blob.
type clawaiMeta struct {
	Always   bool     `json:"always"`
	Requires Requires `json:"requires"`
}

// Skill is one discovered SKILL.md document.
type Skill struct {
	Name        string
	Description string
	Content     string
	Path        string
	Always      bool
	Requires    Requires
}

// frontmatter is the shape of a SKILL.md's YAML frontmatter block. Metadata
// is a raw JSON string, e.g. `{"clawai":{"always":true,"requires":{"bins":["jq"]}}}`.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Metadata    string `yaml:"metadata"`
}

// Loader discovers and gates skills under <workspace>/skills/.
type Loader struct {
	dir string
}

// New creates a Loader rooted at <workspace>/skills.
func New(workspace string) *Loader {
	return &Loader{dir: filepath.Join(workspace, "skills")}
}

// All returns every discovered skill, sorted by name, regardless of gating.
func (l *Loader) All() []Skill {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil
	}

	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(l.dir, e.Name(), SkillFilename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		s, err := parseSkill(data, path)
		if err != nil {
			continue
		}
		if s.Name == "" {
			s.Name = e.Name()
		}
		skills = append(skills, *s)
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// Available reports whether every bin and env var a skill requires is
// resolvable in the current process environment.
func Available(s Skill) bool {
	return len(missingRequirements(s.Requires)) == 0
}

// AlwaysOn returns every available skill marked always=true, in full (the
// context builder inlines these bodies into every turn).
func (l *Loader) AlwaysOn() []Skill {
	var out []Skill
	for _, s := range l.All() {
		if s.Always && Available(s) {
			out = append(out, s)
		}
	}
	return out
}

// Index builds a discoverable-skills summary: name, description, and
// availability for every skill not already inlined as always-on.
func (l *Loader) Index() string {
	all := l.All()
	if len(all) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<skills>\n")
	for _, s := range all {
		if s.Always && Available(s) {
			continue
		}
		available := Available(s)
		sb.WriteString(fmt.Sprintf("  <skill available=%q>\n", fmt.Sprint(available)))
		sb.WriteString("    <name>" + escape(s.Name) + "</name>\n")
		sb.WriteString("    <description>" + escape(s.Description) + "</description>\n")
		sb.WriteString("    <location>" + escape(s.Path) + "</location>\n")
		if !available {
			sb.WriteString("    <requires>" + escape(strings.Join(missingRequirements(s.Requires), ", ")) + "</requires>\n")
		}
		sb.WriteString("  </skill>\n")
	}
	sb.WriteString("</skills>")
	return sb.String()
}

func parseSkill(data []byte, path string) (*Skill, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var fmData frontmatter
	if err := yaml.Unmarshal(fm, &fmData); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	var meta clawaiMeta
	if fmData.Metadata != "" {
		var wrapper struct {
			Clawai clawaiMeta `json:"clawai"`
		}
		if err := json.Unmarshal([]byte(fmData.Metadata), &wrapper); err == nil {
			meta = wrapper.Clawai
		}
	}

	return &Skill{
		Name:        fmData.Name,
		Description: fmData.Description,
		Content:     strings.TrimSpace(body),
		Path:        path,
		Always:      meta.Always,
		Requires:    meta.Requires,
	}, nil
}

func splitFrontmatter(data []byte) (frontmatterBytes []byte, body string, err error) {
	text := string(data)
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return nil, text, nil
	}

	rest := text[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, "", fmt.Errorf("missing closing frontmatter delimiter")
	}

	fm := rest[:end]
	afterDelim := rest[end+4:]
	if idx := strings.IndexByte(afterDelim, '\n'); idx >= 0 {
		afterDelim = afterDelim[idx+1:]
	} else {
		afterDelim = ""
	}
	return []byte(fm), afterDelim, nil
}

func missingRequirements(r Requires) []string {
	var missing []string
	for _, bin := range r.Bins {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, "bin:"+bin)
		}
	}
	for _, env := range r.Env {
		if os.Getenv(env) == "" {
			missing = append(missing, "env:"+env)
		}
	}
	return missing
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
