// Package i18n loads translation files for a text domain and hands out
// printers for the site locale.
//
// Translation files are flat JSON objects mapping source strings to
// translations, named <domain>-<locale>.json (for example
// et-per-event-checkin-de_DE.json). A system directory, when set, is
// searched before the extension's own directory, so site-wide overrides win.
package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type domainCatalog struct {
	builder *catalog.Builder
	tags    []language.Tag
}

// Loader keeps one catalog per loaded text domain.
type Loader struct {
	locale    string
	systemDir string
	log       zerolog.Logger

	mu      sync.RWMutex
	domains map[string]*domainCatalog
}

func NewLoader(locale, systemDir string, log zerolog.Logger) *Loader {
	return &Loader{
		locale:    locale,
		systemDir: systemDir,
		log:       log,
		domains:   make(map[string]*domainCatalog),
	}
}

// Locale returns the site locale the loader was built for.
func (l *Loader) Locale() string {
	return l.locale
}

// LoadTextDomain loads the site-locale translations of domain, looking in
// the system directory first and dir second. A missing file is not an
// error; strings then render untranslated.
func (l *Loader) LoadTextDomain(domain, dir string) error {
	tag, err := ParseLocale(l.locale)
	if err != nil {
		return err
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	dc := &domainCatalog{builder: b}

	for _, base := range []string{l.systemDir, dir} {
		if base == "" {
			continue
		}
		path := filepath.Join(base, domain+"-"+l.locale+".json")
		msgs, err := readMessages(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		for src, dst := range msgs {
			if err := b.SetString(tag, src, dst); err != nil {
				return fmt.Errorf("translation %q in %s: %w", src, path, err)
			}
		}
		dc.tags = append(dc.tags, tag)
		l.log.Debug().Str("domain", domain).Str("file", path).Int("messages", len(msgs)).Msg("text domain loaded")
		break
	}

	l.mu.Lock()
	l.domains[domain] = dc
	l.mu.Unlock()
	return nil
}

// Printer returns a printer for domain in the site locale. Unknown domains
// and untranslated strings print the source string.
func (l *Loader) Printer(domain string) *message.Printer {
	tag, err := ParseLocale(l.locale)
	if err != nil {
		tag = language.English
	}

	l.mu.RLock()
	dc := l.domains[domain]
	l.mu.RUnlock()

	if dc == nil || len(dc.tags) == 0 {
		return message.NewPrinter(tag, message.Catalog(catalog.NewBuilder()))
	}

	matcher := language.NewMatcher(dc.tags)
	if _, idx, conf := matcher.Match(tag); conf != language.No {
		tag = dc.tags[idx]
	}
	return message.NewPrinter(tag, message.Catalog(dc.builder))
}

// ParseLocale converts a locale such as "de_DE" into a language tag.
func ParseLocale(locale string) (language.Tag, error) {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return tag, nil
}

func readMessages(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs map[string]string
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return msgs, nil
}
