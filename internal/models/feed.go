package models

// Feed представляет подписку на RSS-ленту. URL уникален среди всех лент.
type Feed struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Post представляет публикацию ленты. FeedID используется только для поиска ленты.
type Post struct {
	ID          string `json:"id"`
	FeedID      string `json:"feedId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Content возвращает кортеж содержимого публикации без учёта id.
func (p Post) Content() Content {
	return Content{Title: p.Title, Description: p.Description, Link: p.Link}
}

// Content - ключ дедупликации публикаций: (title, description, link).
type Content struct {
	Title       string
	Description string
	Link        string
}

// FormState - состояние формы добавления ленты.
type FormState int

const (
	FormFilling FormState = iota
	FormProcessing
	FormProcessed
	FormFailed
)

func (s FormState) String() string {
	switch s {
	case FormFilling:
		return "filling"
	case FormProcessing:
		return "processing"
	case FormProcessed:
		return "processed"
	case FormFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText позволяет кодировать состояние формы строкой.
func (s FormState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Form хранит состояние формы: введённое значение, валидность и ключ сообщения об ошибке.
type Form struct {
	State FormState `json:"state"`
	Data  string    `json:"data"`
	Valid bool      `json:"isValid"`
	Error *string   `json:"error"`
}
