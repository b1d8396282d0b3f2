package office

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/me/docbatch/internal/queue"
)

// Paragraph is one block of document text. Heading level 0 means body
// text.
type Paragraph struct {
	Text    string         `json:"text"`
	Heading int            `json:"heading,omitempty"`
	Style   map[string]any `json:"style,omitempty"`
}

// TextDocument is an in-memory word-processing document addressed by
// paragraph index. It implements queue.Handler only; text edits have no
// batch-optimizer path.
type TextDocument struct {
	mu         sync.Mutex
	paragraphs []Paragraph

	logger *slog.Logger
}

// NewTextDocument creates an empty document.
func NewTextDocument(logger *slog.Logger) *TextDocument {
	return &TextDocument{logger: logger.With("component", "textdoc")}
}

// Invoke routes a queued operation to the document.
func (d *TextDocument) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case "add_paragraph":
		text, err := stringArg(args, "text")
		if err != nil {
			return nil, err
		}
		return d.AddParagraph(text, 0), nil
	case "add_heading":
		text, err := stringArg(args, "text")
		if err != nil {
			return nil, err
		}
		level, err := intArg(args, "level")
		if err != nil {
			return nil, err
		}
		if level < 1 || level > 6 {
			return nil, fmt.Errorf("heading level %d out of range", level)
		}
		return d.AddParagraph(text, level), nil
	case "set_style":
		index, err := intArg(args, "index")
		if err != nil {
			return nil, err
		}
		style, err := mapArg(args, "style")
		if err != nil {
			return nil, err
		}
		return d.SetStyle(index, style)
	case "replace_text":
		find, err := stringArg(args, "find")
		if err != nil {
			return nil, err
		}
		replace, err := stringArg(args, "replace")
		if err != nil {
			return nil, err
		}
		return d.ReplaceText(find, replace), nil
	case "word_count":
		return d.WordCount(), nil
	case "paragraph_count":
		return d.ParagraphCount(), nil
	default:
		return nil, fmt.Errorf("%w: %q", queue.ErrUnknownMethod, method)
	}
}

// AddParagraph appends a paragraph and returns its index.
func (d *TextDocument) AddParagraph(text string, heading int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paragraphs = append(d.paragraphs, Paragraph{Text: text, Heading: heading})
	return len(d.paragraphs) - 1
}

// SetStyle layers style options onto one paragraph.
func (d *TextDocument) SetStyle(index int, style map[string]any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.paragraphs) {
		return nil, fmt.Errorf("paragraph index %d out of range", index)
	}
	p := &d.paragraphs[index]
	if p.Style == nil {
		p.Style = make(map[string]any, len(style))
	}
	for k, v := range style {
		p.Style[k] = v
	}
	return index, nil
}

// ReplaceText substitutes every occurrence across all paragraphs and
// returns the number of paragraphs touched.
func (d *TextDocument) ReplaceText(find, replace string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	touched := 0
	for i := range d.paragraphs {
		if strings.Contains(d.paragraphs[i].Text, find) {
			d.paragraphs[i].Text = strings.ReplaceAll(d.paragraphs[i].Text, find, replace)
			touched++
		}
	}
	return touched
}

// WordCount counts whitespace-separated words across the document.
func (d *TextDocument) WordCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, p := range d.paragraphs {
		n += len(strings.Fields(p.Text))
	}
	return n
}

// ParagraphCount returns the number of paragraphs.
func (d *TextDocument) ParagraphCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paragraphs)
}

// Paragraphs returns a copy of the document body.
func (d *TextDocument) Paragraphs() []Paragraph {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Paragraph, len(d.paragraphs))
	copy(out, d.paragraphs)
	return out
}
