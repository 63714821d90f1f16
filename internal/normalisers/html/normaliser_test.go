package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.Equal(t, "html", normaliser.Name())
}

func TestNormalise_Success(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	body := []byte("<html><head><title>Test Page</title></head><body><p>Hello World</p></body></html>")

	doc, err := normaliser.Normalise(ctx, "http://example.test/a", body)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "http://example.test/a", doc.SourceURL)
	assert.Equal(t, "Test Page", doc.Title)
	assert.Equal(t, "Hello World", doc.Content)
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestNormalise_NilBody(t *testing.T) {
	doc, err := New().Normalise(context.Background(), "http://example.test/a", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, doc)
}

func TestNormalise_EmptyContent(t *testing.T) {
	doc, err := New().Normalise(context.Background(), "http://example.test/empty", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Content)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		url           string
		expectedTitle string
	}{
		{
			name:          "title tag",
			content:       "<html><head><title>My Document</title></head><body></body></html>",
			url:           "https://example.test/doc.html",
			expectedTitle: "My Document",
		},
		{
			name:          "title with extra spaces",
			content:       "<title>   Spaced Title   </title>",
			url:           "https://example.test/doc.html",
			expectedTitle: "Spaced Title",
		},
		{
			name:          "title with HTML entities",
			content:       "<title>Tom &amp; Jerry</title>",
			url:           "https://example.test/doc.html",
			expectedTitle: "Tom & Jerry",
		},
		{
			name:          "no title - fallback to url path",
			content:       "<body>Just content</body>",
			url:           "https://en.wikipedia.org/wiki/2025_Formula_One_World_Championship",
			expectedTitle: "2025 Formula One World Championship",
		},
		{
			name:          "empty title - fallback strips extension",
			content:       "<title></title><body>Content</body>",
			url:           "https://example.test/pages/readme.html",
			expectedTitle: "readme",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedTitle, ExtractTitle(tc.content, tc.url))
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple paragraph",
			input:    "<p>Hello World</p>",
			expected: "Hello World",
		},
		{
			name:     "nested tags",
			input:    "<div><p><strong>Bold</strong> text</p></div>",
			expected: "Bold text",
		},
		{
			name:     "script removed",
			input:    "<p>Before</p><script>alert('evil');</script><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "style removed",
			input:    "<style>.foo { color: red; }</style><p>Content</p>",
			expected: "Content",
		},
		{
			name:     "head removed",
			input:    "<head><meta charset='utf-8'><title>Title</title></head><body>Content</body>",
			expected: "Content",
		},
		{
			name:     "br to newline",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: "Line 1\nLine 2\nLine 3",
		},
		{
			name:     "HTML entities decoded",
			input:    "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>",
			expected: "<tag> & \"quotes\"",
		},
		{
			name:     "non-breaking spaces collapsed",
			input:    "<p>Max&nbsp;&nbsp;Verstappen</p>",
			expected: "Max Verstappen",
		},
		{
			name:     "citation markers removed",
			input:    `<p>Verstappen won<sup id="cite_ref-1" class="reference"><a href="#cite_note-1">[1]</a></sup> the title.</p>`,
			expected: "Verstappen won the title.",
		},
		{
			name:     "comments removed",
			input:    "<p>Before</p><!-- comment --><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "list items",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "table cells separated",
			input:    "<table><tr><th>Round</th><th>Grand Prix</th></tr><tr><td>1</td><td>Australian</td></tr></table>",
			expected: "Round Grand Prix\n1 Australian",
		},
		{
			name:     "svg removed",
			input:    `<p>Before</p><svg width="100"><circle cx="50"/></svg><p>After</p>`,
			expected: "Before\nAfter",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripHTML(tc.input))
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
}
