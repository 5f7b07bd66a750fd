package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles resolves every task prompt with precedence file > inline config
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loaded, err := c.resolvePrompts()
	if err != nil {
		return err
	}
	c.setLoadedPrompts(loaded)

	c.logPromptLoadingSummary(loaded)
	return nil
}

// ReloadPrompts re-reads prompt files and swaps the loaded set. The previous
// set stays active when any file fails to load.
func (c *Config) ReloadPrompts() (LoadedPrompts, error) {
	loaded, err := c.resolvePrompts()
	if err != nil {
		return c.SystemPrompts(), err
	}
	c.setLoadedPrompts(loaded)
	return loaded, nil
}

func (c *Config) resolvePrompts() (LoadedPrompts, error) {
	var loaded LoadedPrompts
	for _, spec := range c.promptSpecs() {
		value := strings.TrimSpace(spec.inline)
		if spec.file != "" {
			content, err := c.loadPromptFromFile(spec.file, "system", spec.operation)
			if err != nil {
				return LoadedPrompts{}, err
			}
			value = content
		}
		*spec.target(&loaded) = value
	}
	return loaded, nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (c *Config) loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, spec := range c.promptSpecs() {
		if spec.file == "" {
			continue
		}

		absPath, err := filepath.Abs(spec.file)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for system %s prompt: %s", spec.operation, spec.file))
			continue
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("system %s prompt file not found: %s", spec.operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// logPromptLoadingSummary logs a summary of loaded prompts
func (c *Config) logPromptLoadingSummary(loaded LoadedPrompts) {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	promptChecks := []struct {
		content string
		name    string
	}{
		{loaded.MatchJob, "matchJob"},
		{loaded.AnalyzeBullet, "analyzeBullet"},
		{loaded.ExtractResume, "extractResume"},
		{loaded.GenerateBullets, "generateBullets"},
	}

	count := 0
	for _, check := range promptChecks {
		if check.content != "" {
			log.Printf("[CONFIG] System %s prompt: loaded from config/file", check.name)
			count++
		}
	}

	if count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}

	log.Println("[CONFIG] ==========================================")
}
