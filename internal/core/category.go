package core

import (
	"fmt"
	"strings"
)

// CategoryID identifies one of the fixed asset classes a snapshot entry belongs to.
type CategoryID string

const (
	CashNoInterest   CategoryID = "cash-no-interest"
	CashInterest     CategoryID = "cash-interest"
	FixedDeposit     CategoryID = "fixed-deposit"
	Bonds            CategoryID = "bonds"
	RealEstate       CategoryID = "real-estate"
	Bitcoin          CategoryID = "bitcoin"
	CryptoOther      CategoryID = "crypto-other"
	StocksIndex      CategoryID = "stocks-index"
	StocksIndividual CategoryID = "stocks-individual"
	Pension          CategoryID = "pension"
	Other            CategoryID = "other"
)

// CategoryMeta is the display metadata of a category.
type CategoryMeta struct {
	ID    CategoryID `json:"id"`
	Group string     `json:"group"`
	Label string     `json:"label"`
	Color string     `json:"color"`
}

// categories is the registry in display order. Lookups go through Meta.
var categories = [...]CategoryID{
	CashNoInterest,
	CashInterest,
	FixedDeposit,
	Bonds,
	RealEstate,
	Bitcoin,
	CryptoOther,
	StocksIndex,
	StocksIndividual,
	Pension,
	Other,
}

// Categories returns every category in registry order.
func Categories() []CategoryID {
	out := make([]CategoryID, len(categories))
	copy(out, categories[:])
	return out
}

// Registry returns the metadata of every category in registry order.
func Registry() []CategoryMeta {
	out := make([]CategoryMeta, 0, len(categories))
	for _, id := range categories {
		out = append(out, id.Meta())
	}
	return out
}

// Meta returns the display metadata for c. Calling it with an id outside
// the enumeration is a programming error and panics.
func (c CategoryID) Meta() CategoryMeta {
	switch c {
	case CashNoInterest:
		return CategoryMeta{ID: c, Group: "Cash", Label: "Current accounts", Color: "#94a3b8"}
	case CashInterest:
		return CategoryMeta{ID: c, Group: "Cash", Label: "Savings accounts", Color: "#38bdf8"}
	case FixedDeposit:
		return CategoryMeta{ID: c, Group: "Cash", Label: "Fixed-term deposits", Color: "#0ea5e9"}
	case Bonds:
		return CategoryMeta{ID: c, Group: "Fixed income", Label: "Bonds & bond funds", Color: "#14b8a6"}
	case RealEstate:
		return CategoryMeta{ID: c, Group: "Real assets", Label: "Real estate", Color: "#f97316"}
	case Bitcoin:
		return CategoryMeta{ID: c, Group: "Crypto", Label: "Bitcoin", Color: "#f59e0b"}
	case CryptoOther:
		return CategoryMeta{ID: c, Group: "Crypto", Label: "Other crypto", Color: "#eab308"}
	case StocksIndex:
		return CategoryMeta{ID: c, Group: "Equity", Label: "Index funds", Color: "#6366f1"}
	case StocksIndividual:
		return CategoryMeta{ID: c, Group: "Equity", Label: "Individual stocks", Color: "#8b5cf6"}
	case Pension:
		return CategoryMeta{ID: c, Group: "Retirement", Label: "Pension", Color: "#10b981"}
	case Other:
		return CategoryMeta{ID: c, Group: "Other", Label: "Other assets", Color: "#64748b"}
	}
	panic(fmt.Sprintf("core: unknown category %q", string(c)))
}

// Valid reports whether c belongs to the enumeration.
func (c CategoryID) Valid() bool {
	for _, id := range categories {
		if id == c {
			return true
		}
	}
	return false
}

func (c CategoryID) String() string { return string(c) }

// ParseCategoryID validates an id coming from outside the process.
func ParseCategoryID(s string) (CategoryID, error) {
	id := CategoryID(strings.TrimSpace(s))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return id, nil
}
