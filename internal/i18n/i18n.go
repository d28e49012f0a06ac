// Package i18n переводит ключи сообщений формы на язык интерфейса.
package i18n

var resources = map[string]map[string]string{
	"en": {
		"form.messages.errors.validation.url":        "The link must be a valid URL",
		"form.messages.errors.validation.uniqueness": "RSS already exists",
		"form.messages.errors.rss":                   "Resource does not contain a valid RSS",
		"form.messages.errors.network":               "Network error",
		"form.messages.errors.unknown":               "Unknown error",
		"form.messages.success":                      "RSS was loaded successfully",
		"feeds":                                      "Feeds",
		"posts":                                      "Posts",
		"view":                                       "View",
	},
	"ru": {
		"form.messages.errors.validation.url":        "Ссылка должна быть валидным URL",
		"form.messages.errors.validation.uniqueness": "RSS уже существует",
		"form.messages.errors.rss":                   "Ресурс не содержит валидный RSS",
		"form.messages.errors.network":               "Ошибка сети",
		"form.messages.errors.unknown":               "Неизвестная ошибка",
		"form.messages.success":                      "RSS успешно загружен",
		"feeds":                                      "Фиды",
		"posts":                                      "Посты",
		"view":                                       "Просмотр",
	},
}

const DefaultLanguage = "ru"

// Translator переводит ключи на один язык.
type Translator struct {
	lang string
}

// New возвращает переводчик для lang. Для неизвестного языка используется DefaultLanguage.
func New(lang string) *Translator {
	if _, ok := resources[lang]; !ok {
		lang = DefaultLanguage
	}
	return &Translator{lang: lang}
}

// T возвращает перевод key. Если перевода нет, возвращается сам ключ.
func (t *Translator) T(key string) string {
	if msg, ok := resources[t.lang][key]; ok {
		return msg
	}
	return key
}

// Supported сообщает, есть ли переводы для lang.
func Supported(lang string) bool {
	_, ok := resources[lang]
	return ok
}
