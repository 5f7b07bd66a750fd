package config

import "sync"

// LoadedPrompts holds the resolved system prompt overrides of each task.
// An empty field means the task keeps its built-in prompt.
type LoadedPrompts struct {
	MatchJob        string
	AnalyzeBullet   string
	ExtractResume   string
	GenerateBullets string
}

var loadedMu sync.RWMutex

// SystemPrompts returns a copy of the currently loaded prompt overrides
func (c *Config) SystemPrompts() LoadedPrompts {
	loadedMu.RLock()
	defer loadedMu.RUnlock()
	return c.loaded
}

func (c *Config) setLoadedPrompts(p LoadedPrompts) {
	loadedMu.Lock()
	defer loadedMu.Unlock()
	c.loaded = p
}

// promptSpec ties a config entry to its file override
type promptSpec struct {
	operation string
	inline    string
	file      string
	target    func(*LoadedPrompts) *string
}

func (c *Config) promptSpecs() []promptSpec {
	p := c.Prompts
	return []promptSpec{
		{"matchJob", p.MatchJob, p.MatchJobFile, func(l *LoadedPrompts) *string { return &l.MatchJob }},
		{"analyzeBullet", p.AnalyzeBullet, p.AnalyzeBulletFile, func(l *LoadedPrompts) *string { return &l.AnalyzeBullet }},
		{"extractResume", p.ExtractResume, p.ExtractResumeFile, func(l *LoadedPrompts) *string { return &l.ExtractResume }},
		{"generateBullets", p.GenerateBullets, p.GenerateBulletsFile, func(l *LoadedPrompts) *string { return &l.GenerateBullets }},
	}
}

// PromptFiles returns the prompt files referenced by the configuration
func (c *Config) PromptFiles() []string {
	var files []string
	for _, spec := range c.promptSpecs() {
		if spec.file != "" {
			files = append(files, spec.file)
		}
	}
	return files
}
