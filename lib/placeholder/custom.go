package placeholder

import (
	"fmt"
	"sort"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// CompileCustomTokens turns configured token expressions into change-driven
// tokens. Keys are token names, values expr-lang expressions evaluated against
// the resolver context. A failing evaluation leaves the current value in place.
func CompileCustomTokens(definitions map[string]string) ([]Token, error) {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	tokens := make([]Token, 0, len(names))
	for _, name := range names {
		expression := strings.TrimSpace(definitions[name])
		if expression == "" {
			return nil, fmt.Errorf("custom token %s: expression must not be empty", name)
		}
		program, err := exprlang.Compile(expression,
			exprlang.Env(map[string]any{}),
			exprlang.AllowUndefinedVariables(),
		)
		if err != nil {
			return nil, fmt.Errorf("custom token %s: %w", name, err)
		}
		tokens = append(tokens, Token{
			Name:     name,
			Category: ChangeDriven,
			Resolve:  customResolver(program),
		})
	}
	return tokens, nil
}

func customResolver(program *exprvm.Program) Resolver {
	return func(c *Context) string {
		result, err := exprlang.Run(program, environment(c))
		if err != nil || result == nil {
			return c.CurrentValue
		}
		return fmt.Sprint(result)
	}
}

func environment(c *Context) map[string]any {
	year, week := c.Time.ISOWeek()
	return map[string]any{
		"now":        c.Time,
		"year":       c.Time.Year(),
		"month":      int(c.Time.Month()),
		"monthStr":   monthNames[c.Time.Month()-1],
		"date":       c.Time.Day(),
		"weekday":    int(c.Time.Weekday()),
		"weekdayStr": weekdayNames[c.Time.Weekday()],
		"hour":       c.Time.Hour(),
		"minute":     c.Time.Minute(),
		"second":     c.Time.Second(),
		"yearDay":    c.Time.YearDay(),
		"isoYear":    year,
		"weekOfYear": week,
		"unix":       c.Time.Unix(),
		"artboard":   c.ArtboardName,
		"current":    c.CurrentValue,
	}
}
