// Package moderation screens new posts and tags them with languages
package moderation

import (
	"errors"
	"strings"

	"agora/config"

	"github.com/pemistahl/lingua-go"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSpam       = errors.New("post looks like spam")
	ErrRepetitive = errors.New("post is too repetitive")
)

// Moderator applies the configured checks to post text
type Moderator struct {
	rejectSpam bool
	threshold  float64
	targets    []lingua.Language
	detector   lingua.LanguageDetector
}

func New(cfg config.TomlModeration) *Moderator {
	m := &Moderator{
		rejectSpam: cfg.RejectSpam,
		threshold:  cfg.ConfidenceThreshold,
	}

	if !cfg.DetectLanguages {
		return m
	}

	m.targets = isoToLingua(cfg.Languages)

	// The detector needs at least two candidates; with fewer targets it
	// compares against every language it knows
	candidates := m.targets
	if len(candidates) < 2 {
		candidates = lingua.AllLanguages()
	}

	log.WithFields(log.Fields{
		"languages": cfg.Languages,
		"threshold": cfg.ConfidenceThreshold,
	}).Info("Language detection enabled")

	m.detector = lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidates...).
		WithMinimumRelativeDistance(0.25).
		Build()
	return m
}

// Check returns an error when the text should be rejected
func (m *Moderator) Check(text string) error {
	if !m.rejectSpam {
		return nil
	}
	if ContainsSpam(text) {
		return ErrSpam
	}
	if ContainsRepetitivePattern(text) {
		return ErrRepetitive
	}
	return nil
}

// DetectLanguages returns the ISO 639-1 codes of the target languages
// detected with enough confidence, most likely first. Without targets any
// language may be reported.
func (m *Moderator) DetectLanguages(text string) []string {
	if m.detector == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	codes := []string{}
	for _, value := range m.detector.ComputeLanguageConfidenceValues(text) {
		if value.Value() < m.threshold {
			break
		}
		if len(m.targets) > 0 && !lo.Contains(m.targets, value.Language()) {
			continue
		}
		codes = append(codes, strings.ToLower(value.Language().IsoCode639_1().String()))
	}
	return codes
}

func isoToLingua(codes []string) []lingua.Language {
	known := make(map[string]lingua.Language)
	for _, lang := range lingua.AllLanguages() {
		known[strings.ToLower(lang.IsoCode639_1().String())] = lang
	}

	languages := []lingua.Language{}
	for _, code := range codes {
		lang, ok := known[strings.ToLower(code)]
		if !ok {
			log.WithField("code", code).Warn("Ignoring unknown language code")
			continue
		}
		languages = append(languages, lang)
	}
	return lo.Uniq(languages)
}
