package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkillFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing skill file: %v", err)
	}
}

func TestLoadAllValidSkill(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "support.yaml", `
name: support
description: handles support tickets
system_prompt: you are a support agent
tools: [search_knowledge_base]
temperature: 0.3
max_iterations: 5
`)

	l := NewLoader(dir)
	if err := l.LoadAll(map[string]bool{"search_knowledge_base": true}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	s, ok := l.Get("support")
	if !ok {
		t.Fatal("expected support skill to be loaded")
	}
	if s.Temperature != 0.3 || s.MaxIterations != 5 {
		t.Errorf("unexpected fields: %+v", s)
	}
}

func TestLoadAllSkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "_draft.yaml", `name: draft
description: x
system_prompt: x
`)

	l := NewLoader(dir)
	if err := l.LoadAll(nil); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(l.List()) != 0 {
		t.Errorf("expected hidden skill file to be skipped")
	}
}

func TestLoadAllRejectsUnknownTool(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "bad.yaml", `
name: bad
description: x
system_prompt: x
tools: [does_not_exist]
`)

	l := NewLoader(dir)
	if err := l.LoadAll(map[string]bool{"search_knowledge_base": true}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if _, ok := l.Get("bad"); ok {
		t.Error("expected skill with unknown tool to be rejected")
	}
}

func TestLoadAllRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "a.yaml", `
name: dup
description: x
system_prompt: x
`)
	writeSkillFile(t, dir, "b.yaml", `
name: dup
description: y
system_prompt: y
`)

	l := NewLoader(dir)
	if err := l.LoadAll(nil); err == nil {
		t.Error("expected duplicate name to fail LoadAll")
	}
}

func TestLoadAllRejectsBadTemperature(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "hot.yaml", `
name: hot
description: x
system_prompt: x
temperature: 3.5
`)

	l := NewLoader(dir)
	if err := l.LoadAll(nil); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if _, ok := l.Get("hot"); ok {
		t.Error("expected out-of-range temperature to be rejected")
	}
}

func TestLoadAllMissingDirectoryIsNotFatal(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := l.LoadAll(nil); err != nil {
		t.Fatalf("LoadAll on missing dir: %v", err)
	}
	if len(l.List()) != 0 {
		t.Errorf("expected empty skill set")
	}
}

func TestLoadAllWarnsButKeepsUnknownSubAgent(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "planner.yaml", `
name: planner
description: x
system_prompt: x
sub_agents: [ghost]
`)

	l := NewLoader(dir)
	if err := l.LoadAll(nil); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if _, ok := l.Get("planner"); !ok {
		t.Error("expected skill with unknown sub_agent to still load")
	}
}
