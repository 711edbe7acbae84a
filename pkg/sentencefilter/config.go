package sentencefilter

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
)

// Config is the loaded form of the sentence-removal JSON file, grounded
// on original_source/webnovel_archiver/core/modifiers/sentence_remover.py's
// {"remove_sentences": [...], "remove_patterns": [...]} shape.
type Config struct {
	RemoveSentences []string
	RemovePatterns  []*regexp.Regexp
}

type rawConfig struct {
	RemoveSentences []string `json:"remove_sentences"`
	RemovePatterns  []string `json:"remove_patterns"`
}

// LoadConfig reads and parses the sentence-removal config at path. It
// never returns an error to the caller: a missing file, malformed JSON,
// or an invalid regex are all logged and yield partial or empty rules,
// matching the original's behavior of degrading to a no-op rather than
// aborting the archival run.
func LoadConfig(path string, log *logrus.Entry) Config {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("sentence removal config not found, skipping sentence filtering")
		return Config{}
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).Warn("sentence removal config is malformed JSON, skipping sentence filtering")
		return Config{}
	}

	cfg := Config{RemoveSentences: raw.RemoveSentences}
	for _, pat := range raw.RemovePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			log.WithError(err).WithField("pattern", pat).Error("invalid regex pattern in sentence removal config, skipping it")
			continue
		}
		cfg.RemovePatterns = append(cfg.RemovePatterns, re)
	}

	if len(cfg.RemoveSentences) == 0 && len(cfg.RemovePatterns) == 0 {
		log.Warn("no sentences or patterns loaded from sentence removal config")
	}
	return cfg
}
