package i18n

import (
	"embed"
	"encoding/json"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

// Init initializes the i18n bundle with the embedded locale files
func Init(lang string) error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, path := range []string{"locales/en-us.json", "locales/ko-kr.json"} {
		if _, err := b.LoadMessageFileFS(localeFS, path); err != nil {
			return err
		}
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	localizer = i18n.NewLocalizer(bundle, lang)
	return nil
}

// T translates a message by its ID with optional template data and plural count.
// The message ID is returned when i18n is not initialized or the ID is unknown.
func T(messageID string, templateData map[string]interface{}, pluralCount ...int) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()
	if l == nil {
		return messageID
	}

	config := &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: templateData,
	}
	if len(pluralCount) > 0 {
		config.PluralCount = pluralCount[0]
	}

	msg, err := l.Localize(config)
	if err != nil {
		return messageID
	}
	return msg
}

// SetLocale changes the current locale
func SetLocale(lang string) {
	mu.Lock()
	defer mu.Unlock()
	if bundle == nil {
		return
	}
	localizer = i18n.NewLocalizer(bundle, lang)
}
