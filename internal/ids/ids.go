// Package ids генерирует идентификаторы лент и публикаций.
package ids

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Generator выдаёт новый уникальный идентификатор при каждом вызове.
type Generator interface {
	NextID() string
}

// UUID генерирует случайные UUID v4.
type UUID struct{}

func (UUID) NextID() string {
	return uuid.NewString()
}

// Snowflake генерирует монотонные snowflake-id для узла.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake создаёт генератор для nodeID (0-1023).
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) NextID() string {
	return s.node.Generate().String()
}

// Sequence выдаёт "1", "2", "3"...
type Sequence struct {
	n atomic.Int64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

func (s *Sequence) NextID() string {
	return strconv.FormatInt(s.n.Add(1), 10)
}

// New возвращает генератор по имени схемы: uuid, snowflake или sequence.
func New(scheme string, nodeID int64) (Generator, error) {
	switch scheme {
	case "", "uuid":
		return UUID{}, nil
	case "snowflake":
		gen, err := NewSnowflake(nodeID)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "sequence":
		return NewSequence(), nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}
