// Package parser разбирает RSS-документ в структуру канала и его публикаций.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"rss_aggregator/internal/models"
)

const itemTag = "item"

// ErrNoChannel возвращается, если в документе нет элемента channel.
var ErrNoChannel = errors.New("channel element not found")

// ParseError описывает содержимое, которое не удалось разобрать как RSS.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse rss: %s: %v", e.Reason, e.Err)
	}
	return "parse rss: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type element struct {
	name     string
	children []*element
	text     strings.Builder
}

// Parse разбирает XML-строку raw и возвращает канал с его публикациями.
// Каждый дочерний элемент канала, кроме item, попадает в Fields по имени тега,
// у каждого item поля собираются так же и проецируются на title, description, link.
func Parse(raw string) (*models.Channel, error) {
	root, err := readTree(raw)
	if err != nil {
		return nil, err
	}

	channel := findChannel(root)
	if channel == nil {
		return nil, &ParseError{Reason: "no channel", Err: ErrNoChannel}
	}

	fields := make(map[string]string)
	items := make([]models.Item, 0)
	for _, child := range channel.children {
		if child.name == itemTag {
			items = append(items, toItem(child))
			continue
		}
		fields[child.name] = textOf(child)
	}

	return &models.Channel{
		Title:       fields["title"],
		Description: fields["description"],
		Fields:      fields,
		Items:       items,
	}, nil
}

func toItem(el *element) models.Item {
	fields := make(map[string]string, len(el.children))
	for _, child := range el.children {
		fields[child.name] = textOf(child)
	}
	return models.Item{
		Title:       fields["title"],
		Description: fields["description"],
		Link:        fields["link"],
		Fields:      fields,
	}
}

func textOf(el *element) string {
	return strings.TrimSpace(el.text.String())
}

// readTree строит дерево элементов и проверяет, что документ правильно сформирован.
// RawToken не раскрывает префиксы пространств имён, поэтому atom:link остаётся atom:link.
func readTree(raw string) (*element, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.Strict = true
	// Строка уже декодирована, объявленная кодировка документа не важна.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root  *element
		stack []*element
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Reason: "malformed xml", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: tagName(t.Name)}
			if len(stack) == 0 {
				if root != nil {
					return nil, &ParseError{Reason: "multiple root elements"}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			name := tagName(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].name != name {
				return nil, &ParseError{Reason: fmt.Sprintf("unexpected closing tag </%s>", name)}
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, &ParseError{Reason: "text outside of root element"}
				}
				continue
			}
			// textContent элемента включает текст всех потомков.
			for _, el := range stack {
				el.text.Write(t)
			}
		}
	}

	if len(stack) > 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("unclosed tag <%s>", stack[len(stack)-1].name)}
	}
	if root == nil {
		return nil, &ParseError{Reason: "empty document"}
	}
	return root, nil
}

func tagName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func findChannel(el *element) *element {
	if el.name == "channel" {
		return el
	}
	for _, child := range el.children {
		if found := findChannel(child); found != nil {
			return found
		}
	}
	return nil
}
