package i18n

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Translations map[string]string

// Localizer resolves error-code descriptions to a requested language. The
// English descriptions baked into the taxonomy are the fallback.
type Localizer struct {
	locales         map[string]Translations
	defaultLanguage string
}

type Config struct {
	DefaultLanguage string
	TranslationDir  string
}

type contextKey string

const languageKey contextKey = "language"

// NewLocalizer loads per-language YAML files (en.yaml, zh.yaml, ...) mapping
// error codes to localized descriptions.
func NewLocalizer(config *Config) (*Localizer, error) {
	loc := &Localizer{locales: map[string]Translations{}, defaultLanguage: config.DefaultLanguage}
	files, err := os.ReadDir(config.TranslationDir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() || len(f.Name()) < 2 {
			continue
		}
		lang := f.Name()[0:2]
		data, err := os.ReadFile(filepath.Join(config.TranslationDir, f.Name()))
		if err != nil {
			return nil, err
		}
		var t Translations
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		loc.locales[lang] = t
	}

	return loc, nil
}

func (l *Localizer) IsLanguageSupported(lang string) bool {
	_, ok := l.locales[lang]
	return ok
}

func (l *Localizer) DefaultLanguage() string {
	return l.defaultLanguage
}

// ParseAcceptLanguage extracts the preferred language from an
// Accept-Language header value.
func (l *Localizer) ParseAcceptLanguage(acceptLanguage string) string {
	lang := strings.Split(acceptLanguage, ",")[0]
	return strings.TrimSpace(strings.Split(lang, ";")[0])
}

// LocalizeCode returns the localized description for an error code, or the
// provided fallback when the code has no translation in that language.
func (l *Localizer) LocalizeCode(lang, code, fallback string) string {
	if trans, ok := l.locales[lang][code]; ok {
		return trans
	}
	if trans, ok := l.locales[l.defaultLanguage][code]; ok {
		return trans
	}
	return fallback
}

// SetLanguageInContext stores the negotiated language in the context.
func (l *Localizer) SetLanguageInContext(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey, lang)
}

// GetLanguageFromContext returns the negotiated language, defaulting when absent.
func (l *Localizer) GetLanguageFromContext(ctx context.Context) string {
	if ctx == nil {
		return l.defaultLanguage
	}
	if lang, ok := ctx.Value(languageKey).(string); ok && lang != "" {
		return lang
	}
	return l.defaultLanguage
}
