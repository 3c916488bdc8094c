// Package templates holds the full-page shells. Panels inside them are
// filled by Datastar SSE patches.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

type page struct {
	Title    string
	Script   string
	Active   string
	Sections []section
}

type section struct {
	ID      string
	Title   string
	Source  string
	Loading string
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | OmniShelf AI</title>
<script type="module" src="{{.Script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f7fa;color:#1f2933}
header{display:flex;gap:1.5rem;align-items:center;padding:1rem 2rem;background:#102a43;color:#fff}
header a{color:#bcccdc;text-decoration:none}header a.active{color:#fff;font-weight:600}
main{display:grid;gap:1.5rem;padding:2rem;grid-template-columns:repeat(auto-fit,minmax(420px,1fr))}
section{background:#fff;border-radius:8px;padding:1rem 1.5rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.modern-table{width:100%;border-collapse:collapse}.modern-table th,.modern-table td{padding:.4rem .6rem;text-align:left;border-bottom:1px solid #e4e7eb}
.level-out{color:#c81e1e}.level-low{color:#d97706}.level-medium{color:#2563eb}.level-high{color:#059669}
.panel-error{color:#c81e1e}.severity-critical{border-left:4px solid #c81e1e}.severity-warning{border-left:4px solid #d97706}
.metric-cards{display:flex;flex-wrap:wrap;gap:1rem}.metric-card{flex:1;min-width:120px;padding:.75rem;background:#f0f4f8;border-radius:6px}
</style>
</head>
<body>
<header>
<strong>OmniShelf AI</strong>
<a href="/" {{if eq .Active "dashboard"}}class="active"{{end}}>Dashboard</a>
<a href="/smartcart" {{if eq .Active "smartcart"}}class="active"{{end}}>SmartCart</a>
</header>
<main{{if eq .Active "dashboard"}} data-init="@get('/sse/stream')"{{end}}>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
<div id="{{.ID}}"{{if .Source}} data-init="@get('{{.Source}}')"{{end}}>{{.Loading}}</div>
</section>
{{end}}{{if eq .Active "smartcart"}}{{template "smartcart" .}}{{end}}
</main>
</body>
</html>
`))

var _ = template.Must(layout.New("smartcart").Parse(`<section data-signals="{text: '', items: []}">
<h2>Shopping list</h2>
<textarea data-bind="text" rows="8" cols="40" placeholder="One item per line"></textarea>
<button data-on:click="@post('/sse/smartcart')">Find items</button>
<div id="smartcart-results"></div>
</section>
<section>
<h2>Visual search</h2>
<form id="visual-search-form" enctype="multipart/form-data" data-on:submit="@post('/sse/visual-search', {contentType: 'form'})">
<input type="file" name="file" accept="image/*" required>
<button type="submit">Identify product</button>
</form>
<div id="visual-search-results"></div>
</section>`))

func render(p page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return layout.Execute(w, p)
	})
}

// Dashboard is the admin view: metrics, category breakdown, inventory table,
// alerts and upload history.
func Dashboard() templ.Component {
	return render(page{
		Title:  "Dashboard",
		Script: datastarScript,
		Active: "dashboard",
		Sections: []section{
			{ID: "metrics-content", Title: "Overview", Source: "/sse/overview", Loading: "Loading metrics..."},
			{ID: "categories-content", Title: "Top categories", Loading: "Loading categories..."},
			{ID: "alerts-content", Title: "Active alerts", Source: "/sse/alerts", Loading: "Loading alerts..."},
			{ID: "inventory-content", Title: "Inventory", Source: "/sse/inventory", Loading: "Loading inventory..."},
			{ID: "uploads-content", Title: "Recent uploads", Source: "/sse/uploads", Loading: "Loading uploads..."},
		},
	})
}

// SmartCart is the customer view for shopping-list lookup and visual search.
func SmartCart() templ.Component {
	return render(page{
		Title:  "SmartCart",
		Script: datastarScript,
		Active: "smartcart",
	})
}
