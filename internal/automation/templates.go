package automation

import (
	"fmt"
	"regexp"
	"strings"
)

// Expander expands action templates against a fact context. The
// concrete syntax beyond the {{fact.path}} placeholder form is owned
// by the editing surface; the engine only needs substitution.
type Expander interface {
	// Expand substitutes placeholders from the context. An unresolved
	// fact is an expansion failure, not an empty string.
	Expand(template string, factCtx map[string]any) (string, error)
}

// placeholderRegex matches {{ dotted.fact.path }} with optional
// interior whitespace.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// FactExpander is the built-in Expander: straight placeholder
// substitution from the flattened fact context.
type FactExpander struct{}

// Expand substitutes every {{path}} placeholder with the context value
// at that path, stringified. A placeholder whose path is absent from
// the context fails the whole expansion.
func (FactExpander) Expand(template string, factCtx map[string]any) (string, error) {
	var expandErr error
	out := placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(strings.Trim(match, "{}"))
		v, ok := factCtx[path]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("%w: fact %q not in context", ErrTemplateExpansion, path)
			}
			return match
		}
		return stringify(v)
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// ContainsPlaceholders reports whether the template has any {{...}}
// placeholder. Static save-time checks on expanded-value syntax only
// apply to literal templates; a placeholder defers the check to the
// editing surface's preview.
func ContainsPlaceholders(template string) bool {
	return placeholderRegex.MatchString(template)
}

// TemplatePlaceholders lists the fact paths a template references.
func TemplatePlaceholders(template string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m[1])
	}
	return paths
}

// stringify renders a context value into template output.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		// Drop the decimal point for integral values; fact contexts
		// carry JSON numbers as float64.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
