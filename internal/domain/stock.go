package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVariantRequired   = errors.New("variant required")
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrInvalidStock      = errors.New("invalid stock policy")
)

// StockKind дискриминатор StockPolicy
type StockKind string

const (
	StockFlat    StockKind = "flat"
	StockVariant StockKind = "variant"
)

// StockPolicy хранит остаток либо одним числом, либо по размерам.
// Одновременно действует только один вариант.
type StockPolicy struct {
	Kind     StockKind        `json:"kind"`
	Quantity int64            `json:"quantity,omitempty"`
	Variants map[string]int64 `json:"variants,omitempty"`
}

func FlatStock(qty int64) StockPolicy {
	return StockPolicy{Kind: StockFlat, Quantity: qty}
}

func VariantStock(variants map[string]int64) StockPolicy {
	cp := make(map[string]int64, len(variants))
	for k, v := range variants {
		cp[k] = v
	}
	return StockPolicy{Kind: StockVariant, Variants: cp}
}

// Validate проверяет неотрицательность остатков
func (s StockPolicy) Validate() error {
	switch s.Kind {
	case StockFlat:
		if s.Quantity < 0 || len(s.Variants) > 0 {
			return ErrInvalidStock
		}
		return nil
	case StockVariant:
		if s.Quantity != 0 || len(s.Variants) == 0 {
			return ErrInvalidStock
		}
		for name, q := range s.Variants {
			if name == "" || q < 0 {
				return ErrInvalidStock
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidStock, s.Kind)
	}
}

// Available возвращает известный остаток для варианта ("" для плоского остатка)
func (s StockPolicy) Available(variant string) (int64, error) {
	switch s.Kind {
	case StockFlat:
		if variant != "" {
			return 0, ErrUnknownVariant
		}
		return s.Quantity, nil
	case StockVariant:
		if variant == "" {
			return 0, ErrVariantRequired
		}
		q, ok := s.Variants[variant]
		if !ok {
			return 0, ErrUnknownVariant
		}
		return q, nil
	default:
		return 0, fmt.Errorf("%w: kind %q", ErrInvalidStock, s.Kind)
	}
}

// Decrement возвращает новую политику с уменьшенным остатком.
// Исходное значение не меняется.
func (s StockPolicy) Decrement(variant string, qty int64) (StockPolicy, error) {
	avail, err := s.Available(variant)
	if err != nil {
		return s, err
	}
	if qty <= 0 || avail < qty {
		return s, ErrInsufficientStock
	}
	switch s.Kind {
	case StockFlat:
		return FlatStock(s.Quantity - qty), nil
	case StockVariant:
		out := VariantStock(s.Variants)
		out.Variants[variant] -= qty
		return out, nil
	default:
		return s, fmt.Errorf("%w: kind %q", ErrInvalidStock, s.Kind)
	}
}

// VariantNames sorted list of sizes; nil for flat stock
func (s StockPolicy) VariantNames() []string {
	if s.Kind != StockVariant {
		return nil
	}
	names := make([]string, 0, len(s.Variants))
	for k := range s.Variants {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
