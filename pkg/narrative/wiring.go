package narrative

import (
	"fmt"

	"github.com/synaptica-ai/cardio-extract/pkg/common/config"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
	"github.com/synaptica-ai/cardio-extract/pkg/llm"
	"github.com/synaptica-ai/cardio-extract/pkg/ner"
	"github.com/synaptica-ai/cardio-extract/pkg/vocabulary"
)

// NewEngineFromConfig assembles the three strategies. A missing NER or LLM
// endpoint leaves that strategy unconfigured; it then contributes nothing.
func NewEngineFromConfig(cfg *config.Config) (*extraction.Engine, []FieldInfo, error) {
	vocab, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		if vocab == nil {
			return nil, nil, fmt.Errorf("loading vocabulary: %w", err)
		}
		logger.Log.WithError(err).Warn("vocabulary file unavailable, using built-in terms")
	}

	patternsCfg, err := extraction.LoadPatterns(cfg.PatternsPath)
	if err != nil {
		if len(patternsCfg.Patterns) == 0 {
			return nil, nil, fmt.Errorf("loading patterns: %w", err)
		}
		logger.Log.WithError(err).Warn("patterns file unavailable, using built-in rules")
	}
	patterns, err := extraction.NewPatternExtractor(patternsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling patterns: %w", err)
	}

	var recognizer extraction.Recognizer
	if cfg.NERBaseURL != "" {
		client, err := ner.NewClient(ner.OptionsFromConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		recognizer = client
	} else {
		logger.Log.Warn("NER_BASE_URL not set, entity strategy disabled")
	}

	var completer extraction.Completer
	if cfg.LLMAPIKey != "" {
		client, err := llm.NewClient(llm.OptionsFromConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		completer = client
	} else {
		logger.Log.Warn("LLM_API_KEY not set, generative strategy disabled")
	}

	generative, err := extraction.NewGenerativeExtractor(completer)
	if err != nil {
		return nil, nil, err
	}

	engine, err := extraction.NewEngine(
		generative,
		patterns,
		extraction.NewEntityExtractor(recognizer, vocab),
		extraction.WithParallel(cfg.ExtractionParallel),
	)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"vocabulary_terms": vocab.Len(),
		"pattern_rules":    len(patterns.Rules()),
		"entity":           recognizer != nil,
		"generative":       completer != nil,
		"parallel":         cfg.ExtractionParallel,
	}).Info("extraction engine ready")

	return engine, BuildCatalog(vocab, patterns.Rules()), nil
}
