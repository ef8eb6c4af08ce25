package placeholder

import (
	"fmt"
	"strings"
)

// Category decides which event resolves a token.
type Category int

const (
	ChangeDriven Category = iota
	SaveDriven
	PaginationDriven
)

func (c Category) String() string {
	switch c {
	case SaveDriven:
		return "save"
	case PaginationDriven:
		return "pagination"
	default:
		return "change"
	}
}

// ValueKind tells the apply engine how a resolved value is written.
type ValueKind int

const (
	KindText ValueKind = iota
	// KindImage tokens are resolved to an identicon seed, not to text.
	KindImage
	// KindCounter tokens advance at most once per artboard per save cycle when
	// they are change-driven.
	KindCounter
)

type Resolver func(ctx *Context) string

type Token struct {
	Name     string
	Category Category
	Kind     ValueKind
	Resolve  Resolver
}

// Filter selects which categories a lookup considers.
type Filter uint8

const (
	FilterChange Filter = 1 << iota
	FilterSave
	FilterPagination

	FilterAll = FilterChange | FilterSave | FilterPagination
)

func FilterFor(c Category) Filter {
	switch c {
	case SaveDriven:
		return FilterSave
	case PaginationDriven:
		return FilterPagination
	default:
		return FilterChange
	}
}

func (f Filter) Has(c Category) bool {
	return f&FilterFor(c) != 0
}

// Registry maps lower-cased token names to their definitions, keeping the
// declaration order for iteration.
type Registry struct {
	ordered []Token
	byName  map[string]int
}

func NewRegistry(tokens ...Token) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(tokens))}
	for _, t := range tokens {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Add(t Token) error {
	name := strings.ToLower(strings.TrimSpace(t.Name))
	if name == "" {
		return fmt.Errorf("placeholder token without a name")
	}
	if t.Resolve == nil {
		return fmt.Errorf("placeholder token %s has no resolver", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("placeholder token %s registered twice", name)
	}
	t.Name = name
	r.byName[name] = len(r.ordered)
	r.ordered = append(r.ordered, t)
	return nil
}

// Lookup matches name case-insensitively against the tokens allowed by filter.
func (r *Registry) Lookup(name string, filter Filter) (Token, bool) {
	idx, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Token{}, false
	}
	t := r.ordered[idx]
	if !filter.Has(t.Category) {
		return Token{}, false
	}
	return t, true
}

func (r *Registry) IsToken(name string) bool {
	_, ok := r.Lookup(name, FilterAll)
	return ok
}

// Tokens returns the tokens allowed by filter in declaration order.
func (r *Registry) Tokens(filter Filter) []Token {
	var out []Token
	for _, t := range r.ordered {
		if filter.Has(t.Category) {
			out = append(out, t)
		}
	}
	return out
}
