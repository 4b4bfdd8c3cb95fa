// Package i18n resolves the locale of a request and translates title keys
// from the embedded YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// BaseLocale is the locale every catalog falls back to.
	BaseLocale = "en-US"
)

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the loaded catalogs and the matcher over their locales.
type Bundle struct {
	builder   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

var defaultBundle = mustLoadEmbedded()

func mustLoadEmbedded() *Bundle {
	b, err := LoadFromFS(localesFS)
	if err != nil {
		panic(err)
	}
	return b
}

// Default returns the bundle built from the embedded catalogs.
func Default() *Bundle {
	return defaultBundle
}

// LoadFromFS loads every locales/*.yaml file in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}
	if len(b.supported) == 0 || b.supported[0] != language.MustParse(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	b.matcher = language.NewMatcher(b.supported)
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if file.Locale != name {
		return fmt.Errorf("catalog %s: locale %q must match file name", p, file.Locale)
	}
	tag, err := language.Parse(file.Locale)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", p, err)
	}
	for key, msg := range file.Messages {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if err := b.builder.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("catalog %s: key %q: %w", p, key, err)
		}
	}
	// The matcher prefers the first tag, so keep the base locale in front.
	if file.Locale == BaseLocale {
		b.supported = append([]language.Tag{tag}, b.supported...)
	} else {
		b.supported = append(b.supported, tag)
	}
	return nil
}

// Supported returns the locales that have a catalog, base locale first.
func (b *Bundle) Supported() []language.Tag {
	return append([]language.Tag(nil), b.supported...)
}

// Match returns the supported locale closest to the given tags.
func (b *Bundle) Match(tags ...language.Tag) language.Tag {
	_, idx, _ := b.matcher.Match(tags...)
	return b.supported[idx]
}

// Translator returns the translation function for tag. Keys missing from
// the catalog are returned unchanged.
func (b *Bundle) Translator(tag language.Tag) func(key string) string {
	p := message.NewPrinter(b.Match(tag), message.Catalog(b.builder))
	return func(key string) string {
		// The fallback is rendered as a format string.
		return p.Sprintf(message.Key(key, strings.ReplaceAll(key, "%", "%%")))
	}
}

// Resolve picks the locale of r from ?lang=, then Accept-Language, and falls
// back to the base locale.
func (b *Bundle) Resolve(r *http.Request) language.Tag {
	if r == nil {
		return b.supported[0]
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return b.Match(tag)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return b.Match(tags...)
		}
	}
	return b.supported[0]
}

// Translator returns the translation function of the default bundle.
func Translator(tag language.Tag) func(key string) string {
	return defaultBundle.Translator(tag)
}

// Resolve resolves the request locale against the default bundle.
func Resolve(r *http.Request) language.Tag {
	return defaultBundle.Resolve(r)
}
