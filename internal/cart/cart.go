// Package cart корзина покупателя по сессии: строки по товару и размеру,
// цена фиксируется при первом добавлении.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	ErrNoStock         = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidKey      = errors.New("invalid cart line key")
)

// LineKey идентифицирует строку корзины: товар и размер ("" без размера)
type LineKey struct {
	ProductID int64
	Variant   string
}

// String рендерит ключ как "<id>" или "<id>-<size>"
func (k LineKey) String() string {
	if k.Variant == "" {
		return strconv.FormatInt(k.ProductID, 10)
	}
	return strconv.FormatInt(k.ProductID, 10) + "-" + k.Variant
}

// ParseLineKey разбирает ключ; размер может сам содержать дефис
func ParseLineKey(s string) (LineKey, error) {
	idPart, variant, _ := strings.Cut(s, "-")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return LineKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return LineKey{ProductID: id, Variant: variant}, nil
}

// Line строка корзины
type Line struct {
	ProductID int64           `json:"product_id"`
	Variant   string          `json:"variant,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Variant: l.Variant}
}

func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart упорядоченный набор строк; порядок = порядок добавления.
// Не потокобезопасен: один экземпляр на сессию.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(k LineKey) int {
	for i, l := range c.lines {
		if l.Key() == k {
			return i
		}
	}
	return -1
}

// AddLine добавляет товар или увеличивает существующую строку.
// Итоговое количество ограничено известным остатком. Цена фиксируется
// при первом добавлении и дальше не обновляется.
func (c *Cart) AddLine(p domain.Product, quantity int64, variant string) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	avail, err := p.Stock.Available(variant)
	if err != nil {
		return Line{}, err
	}
	if avail <= 0 {
		return Line{}, ErrNoStock
	}

	k := LineKey{ProductID: p.ID, Variant: variant}
	if i := c.index(k); i >= 0 {
		c.lines[i].Quantity = min(c.lines[i].Quantity+quantity, avail)
		return c.lines[i], nil
	}
	l := Line{
		ProductID: p.ID,
		Variant:   variant,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  min(quantity, avail),
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// UpdateQuantity задаёт количество строки, ограничивая его maxStock.
// Ноль или меньше удаляет строку.
func (c *Cart) UpdateQuantity(k LineKey, quantity, maxStock int64) error {
	i := c.index(k)
	if i < 0 {
		return ErrLineNotFound
	}
	q := min(quantity, maxStock)
	if quantity <= 0 || q <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return nil
	}
	c.lines[i].Quantity = q
	return nil
}

func (c *Cart) RemoveLine(k LineKey) error {
	i := c.index(k)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total сумма по зафиксированным ценам
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemCount общее число единиц товара
func (c *Cart) ItemCount() int64 {
	var n int64
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines возвращает копию строк
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(k LineKey) (Line, bool) {
	if i := c.index(k); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) clone() *Cart {
	return &Cart{lines: c.Lines()}
}

type cartJSON struct {
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int64           `json:"item_count"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartJSON{Lines: c.Lines(), Total: c.Total(), ItemCount: c.ItemCount()})
}

// UnmarshalJSON читает только строки; итоги всегда пересчитываются
func (c *Cart) UnmarshalJSON(data []byte) error {
	var v cartJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.lines = v.Lines
	return nil
}
