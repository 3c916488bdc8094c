package templates

import (
	"context"
	"strings"
	"testing"
)

func TestDashboard_Render(t *testing.T) {
	var buf strings.Builder
	if err := Dashboard().Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	expected := []string{
		"<title>Dashboard | OmniShelf AI</title>",
		`id="inventory-content"`,
		`data-init="@get('/sse/inventory')"`,
		`data-init="@get('/sse/stream')"`,
		`id="categories-content"`,
		"datastar.js",
	}
	for _, want := range expected {
		if !strings.Contains(html, want) {
			t.Errorf("expected HTML to contain %q", want)
		}
	}
	if strings.Contains(html, "smartcart-results") {
		t.Error("dashboard should not include the SmartCart form")
	}
}

func TestSmartCart_Render(t *testing.T) {
	var buf strings.Builder
	if err := SmartCart().Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{`id="smartcart-results"`, `@post('/sse/visual-search', {contentType: 'form'})`, `id="visual-search-results"`, `class="active">SmartCart`} {
		if !strings.Contains(html, want) {
			t.Errorf("expected HTML to contain %q", want)
		}
	}
	if strings.Contains(html, "/sse/stream") {
		t.Error("smartcart should not open the inventory stream")
	}
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf strings.Builder
	if err := Dashboard().Render(ctx, &buf); err == nil {
		t.Error("expected error for canceled context")
	}
}
