// Package config loads the INI-like configuration file described in
// spec.md §6: a General section with workspace_path, and a
// SentenceRemoval section with default_sentence_removal_file. A missing
// file is created with both sections at their defaults; a section
// missing from an existing file takes its defaults for the run but is
// not written back to the file. WNA_WORKSPACE_ROOT
// overrides the configured workspace path when set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const EnvWorkspaceRoot = "WNA_WORKSPACE_ROOT"

// Config is the resolved configuration for a run.
type Config struct {
	WorkspacePath                string
	DefaultSentenceRemovalFile   string
}

// Load reads path (an INI file) via viper, applying defaults for missing
// sections/keys and the WNA_WORKSPACE_ROOT environment override. If path
// does not exist, it is created with both sections at their defaults. An
// existing file is never rewritten: sections or keys missing from it are
// defaulted in memory only and are not added to the file.
func Load(path, projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetConfigFile(path)

	v.SetDefault("general.workspace_path", "workspace")
	v.SetDefault("sentenceremoval.default_sentence_removal_file", "")

	if err := v.BindEnv("general.workspace_path", EnvWorkspaceRoot); err != nil {
		return nil, fmt.Errorf("config: bind env: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaults(path); err != nil {
			return nil, fmt.Errorf("config: write defaults: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	workspacePath := v.GetString("general.workspace_path")
	if !filepath.IsAbs(workspacePath) {
		workspacePath = filepath.Join(projectRoot, workspacePath)
	}

	return &Config{
		WorkspacePath:              workspacePath,
		DefaultSentenceRemovalFile: v.GetString("sentenceremoval.default_sentence_removal_file"),
	}, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	contents := "[General]\nworkspace_path = workspace\n\n[SentenceRemoval]\ndefault_sentence_removal_file =\n"
	return os.WriteFile(path, []byte(contents), 0o644)
}
