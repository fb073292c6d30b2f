package main

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultTimeFormat = "%H:%M"
	defaultCardFormat = "Neko0v0-脑容量{memory_usage}%-{current_time}"
)

// CardTemplate is the user-editable card layout read from name.yml.
type CardTemplate struct {
	TimeFormat string `yaml:"time_format"`
	CardFormat string `yaml:"card_format"`
}

func defaultTemplate() CardTemplate {
	return CardTemplate{
		TimeFormat: defaultTimeFormat,
		CardFormat: defaultCardFormat,
	}
}

// loadTemplate never fails: anything wrong with the file yields the
// defaults for the affected keys.
func loadTemplate(path string, log *zap.Logger) CardTemplate {
	tmpl := defaultTemplate()

	doc, err := readYAMLMap(path, log)
	if err != nil {
		log.Warn("card template unreadable, using defaults", zap.String("path", path), zap.Error(err))
		return tmpl
	}
	if doc == nil {
		return tmpl
	}

	if v, ok := doc["time_format"].(string); ok && v != "" {
		tmpl.TimeFormat = v
	}
	if v, ok := doc["card_format"].(string); ok && v != "" {
		tmpl.CardFormat = v
	}
	return tmpl
}

// Render substitutes {name} placeholders with field values. "{{" and "}}"
// are literal braces, unknown names are kept verbatim, and a field missing
// from fields renders as Unknown. Numeric fields accept a ".Nf" spec, for
// example {cpu_usage:.1f}.
func (t CardTemplate) Render(fields CardFields) string {
	format := t.CardFormat
	var b strings.Builder
	b.Grow(len(format))

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i+1:], '}')
			if end < 0 {
				b.WriteString(format[i:])
				return b.String()
			}
			expr := format[i+1 : i+1+end]
			if s, ok := renderPlaceholder(expr, fields); ok {
				b.WriteString(s)
			} else {
				b.WriteString(format[i : i+2+end])
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func renderPlaceholder(expr string, fields CardFields) (string, bool) {
	name, spec, _ := strings.Cut(expr, ":")
	if !isCardField(name) {
		return "", false
	}
	v, ok := fields[name]
	if !ok {
		return Unknown, true
	}
	if spec != "" {
		if s, ok := applyPrecision(v, spec); ok {
			return s, true
		}
	}
	return formatValue(v), true
}

func applyPrecision(v any, spec string) (string, bool) {
	if len(spec) < 3 || spec[0] != '.' || spec[len(spec)-1] != 'f' {
		return "", false
	}
	prec, err := strconv.Atoi(spec[1 : len(spec)-1])
	if err != nil || prec < 0 {
		return "", false
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', prec, 64), true
	case int:
		return strconv.FormatFloat(float64(n), 'f', prec, 64), true
	}
	return "", false
}

func isCardField(name string) bool {
	for _, f := range cardFieldNames {
		if f == name {
			return true
		}
	}
	return false
}
