// Package skills loads and validates declarative skill definitions from a
// directory of YAML files.
package skills

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
)

// Loader loads skill YAML files from a directory and keeps the validated
// set available for atomic reload.
type Loader struct {
	dir string

	mu     sync.RWMutex
	skills map[string]Skill
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, skills: map[string]Skill{}}
}

// LoadAll reads every non-hidden *.yaml/*.yml file in the skills directory,
// validates it against knownTools, and atomically swaps the in-memory set.
// A skill naming a tool absent from knownTools is rejected; unknown
// sub_agents are only warned about, since the runtime gate on delegation is
// orchestration depth, not this advisory set. Files that fail to parse or
// validate are skipped with a logged warning; a duplicate name aborts the
// whole load since callers cannot safely disambiguate which copy to keep.
func (l *Loader) LoadAll(knownTools map[string]bool) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("skills: directory not found: %s", l.dir)
			l.mu.Lock()
			l.skills = map[string]Skill{}
			l.mu.Unlock()
			return nil
		}
		return fmt.Errorf("reading skills directory: %w", err)
	}

	loaded := map[string]Skill{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(l.dir, name)
		skill, err := loadFile(path)
		if err != nil {
			log.Printf("skills: failed to load %s: %v", name, fmt.Errorf("%w: %w", agentgwerr.ErrSkillValidation, err))
			continue
		}

		if err := validate(skill, knownTools); err != nil {
			log.Printf("skills: rejecting %s: %v", name, fmt.Errorf("%w: %w", agentgwerr.ErrSkillValidation, err))
			continue
		}

		if _, dup := loaded[skill.Name]; dup {
			return fmt.Errorf("duplicate skill name %q (from %s)", skill.Name, name)
		}
		loaded[skill.Name] = skill
	}

	warnUnknownSubAgents(loaded)

	l.mu.Lock()
	l.skills = loaded
	l.mu.Unlock()

	return nil
}

// Get returns a loaded skill by name.
func (l *Loader) Get(name string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.skills[name]
	return s, ok
}

// List returns all loaded skills.
func (l *Loader) List() []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, s)
	}
	return out
}

func loadFile(path string) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, err
	}

	var s Skill
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Skill{}, fmt.Errorf("parsing yaml: %w", err)
	}

	if s.Name == "" || s.Description == "" || s.SystemPrompt == "" {
		return Skill{}, fmt.Errorf("missing required field: name, description and system_prompt are all required")
	}

	if s.Temperature == 0 {
		s.Temperature = 0.7
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 10
	}

	return s, nil
}

func validate(s Skill, knownTools map[string]bool) error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", s.Temperature)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", s.MaxIterations)
	}
	if s.RAGContext != nil && s.RAGContext.Enabled && s.RAGContext.TopK <= 0 {
		return fmt.Errorf("rag_context.top_k must be positive, got %d", s.RAGContext.TopK)
	}
	if knownTools != nil {
		for _, t := range s.Tools {
			if !knownTools[t] {
				return fmt.Errorf("unknown tool %q", t)
			}
		}
	}
	return nil
}

// warnUnknownSubAgents logs (without failing) any sub_agents entry that
// does not name a skill present in the loaded set.
func warnUnknownSubAgents(loaded map[string]Skill) {
	for _, s := range loaded {
		for _, sub := range s.SubAgents {
			if _, ok := loaded[sub]; !ok {
				log.Printf("skills: %s declares unknown sub_agent %q", s.Name, sub)
			}
		}
	}
}
