package models

// Channel представляет разобранный элемент channel RSS-документа.
// Fields содержит все дочерние элементы канала, кроме item, по имени тега.
type Channel struct {
	Title       string
	Description string
	Fields      map[string]string
	Items       []Item
}

// Item представляет одну публикацию из RSS-ленты до присвоения ей id.
type Item struct {
	Title       string
	Description string
	Link        string
	Fields      map[string]string
}

// Content возвращает кортеж содержимого, по которому сравниваются публикации.
func (i Item) Content() Content {
	return Content{Title: i.Title, Description: i.Description, Link: i.Link}
}
