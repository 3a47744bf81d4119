package invoice

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	ierr "github.com/palmsuites/invoicegen/internal/errors"
)

//go:embed invoice.html
var defaultTemplateHTML string

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// Template is an HTML invoice layout with {{name}}-style placeholders.
// Binding is textual substitution: the embedded logo and QR images are
// base64 data URIs that HTML-escaping templating would mangle, and an
// unresolved placeholder must be an error, not silent literal output.
type Template struct {
	html         string
	placeholders []string
}

// NewTemplate parses placeholder names out of an HTML document.
func NewTemplate(html string) *Template {
	matches := placeholderPattern.FindAllStringSubmatch(html, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return &Template{html: html, placeholders: names}
}

// LoadTemplate reads an invoice layout from path, falling back to the
// built-in layout when the file does not exist.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTemplate(defaultTemplateHTML), nil
		}
		return nil, ierr.WithError(err).WithMessage("reading invoice template").Mark(ierr.ErrSystem)
	}
	return NewTemplate(string(data)), nil
}

// Placeholders returns the distinct placeholder names the layout uses.
func (t *Template) Placeholders() []string {
	return t.placeholders
}

// Bind substitutes every placeholder with the matching field value. A
// placeholder with no field is a template-content bug and fails loudly
// naming the offender.
func (t *Template) Bind(fields map[string]string) (string, error) {
	for _, name := range t.placeholders {
		if _, ok := fields[name]; !ok {
			return "", ierr.NewErrorf("unresolved template placeholder {{%s}}", name).
				Mark(ierr.ErrRenderFailed)
		}
	}
	out := placeholderPattern.ReplaceAllStringFunc(t.html, func(m string) string {
		name := strings.Trim(m, "{}")
		return fields[name]
	})
	return out, nil
}
