package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, workspace, name, content string) {
	t.Helper()
	dir := filepath.Join(workspace, "skills", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, SkillFilename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestAllParsesFrontmatterAndBody(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "greet", "---\nname: greet\ndescription: says hello\n---\nSay hello to the user.\n")

	l := New(ws)
	all := l.All()
	if len(all) != 1 {
		t.Fatalf("got %d skills, want 1", len(all))
	}
	if all[0].Name != "greet" || all[0].Description != "says hello" {
		t.Errorf("got %+v", all[0])
	}
	if all[0].Content != "Say hello to the user." {
		t.Errorf("content = %q", all[0].Content)
	}
}

func TestAlwaysOnRequiresGating(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "alwayson", `---
name: alwayson
description: an always-on skill with no requirements
metadata: '{"clawai":{"always":true}}'
---
Body.
`)
	writeSkill(t, ws, "gated", `---
name: gated
description: needs a binary that will never exist
metadata: '{"clawai":{"always":true,"requires":{"bins":["this-binary-does-not-exist-xyz"]}}}'
---
Body.
`)

	l := New(ws)
	always := l.AlwaysOn()
	if len(always) != 1 || always[0].Name != "alwayson" {
		t.Errorf("AlwaysOn() = %+v, want only 'alwayson'", always)
	}
}

func TestIndexListsUngatedSkills(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "searchable", "---\nname: searchable\ndescription: discoverable via index\n---\nBody.\n")

	l := New(ws)
	idx := l.Index()
	if idx == "" {
		t.Fatal("expected a non-empty index")
	}
	if !strings.Contains(idx, "searchable") || !strings.Contains(idx, "discoverable via index") {
		t.Errorf("index missing expected content: %s", idx)
	}
}

func TestNoSkillsDirReturnsEmpty(t *testing.T) {
	l := New(t.TempDir())
	if len(l.All()) != 0 {
		t.Error("expected no skills")
	}
	if l.Index() != "" {
		t.Error("expected empty index")
	}
}
