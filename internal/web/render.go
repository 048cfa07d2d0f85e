package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/ledger"
	"github.com/minimall/storefront/pkg/money"
)

//go:embed templates
var templateFS embed.FS

// views holds one template set per page, each combined with the layout.
type views struct {
	pages map[string]*template.Template
}

func parseViews() (*views, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse layout")
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "list page templates")
	}

	v := &views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, errors.Wrap(err, "clone layout")
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, errors.Wrapf(err, "parse %s", f)
		}
		v.pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	return v, nil
}

func (v *views) execute(w io.Writer, name string, data interface{}) error {
	t, ok := v.pages[name]
	if !ok {
		return errors.Errorf("no template %q", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

var funcs = template.FuncMap{
	"peso":         peso,
	"date":         displayDate,
	"day":          func(t time.Time) string { return formatDay(t) },
	"payment":      paymentLabel,
	"status":       statusLabel,
	"initials":     ledger.Initials,
	"add":          func(a, b int) int { return a + b },
	"join":         strings.Join,
	"percent":      func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"selected":     func(a, b string) bool { return a == b },
	"deliveryName": deliveryLabel,
}

// peso formats any of the money representations the views carry.
func peso(v interface{}) string {
	switch x := v.(type) {
	case money.Amount:
		return x.String()
	case float64:
		return money.Format(x)
	case int:
		return money.Format(float64(x))
	}
	return money.Format(0)
}

const dayLayout = "Jan 2, 2006"

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dayLayout)
}

// displayDate renders a backend timestamp as "Jan 2, 2006".
func displayDate(s string) string {
	t, ok := ledger.ParseTimestamp(s)
	if !ok {
		return "N/A"
	}
	return formatDay(t)
}

func paymentLabel(method string) string {
	if l, ok := paymentLabels[method]; ok {
		return l
	}
	if method == "" {
		return "N/A"
	}
	return statusLabel(method)
}

func deliveryLabel(option string) string {
	switch option {
	case "express":
		return "Express Delivery"
	case "standard", "":
		return "Standard Delivery"
	}
	return statusLabel(option)
}

// statusLabel turns "cash_on_delivery" into "Cash On Delivery".
func statusLabel(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
