package office

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/docbatch/internal/executor"
	"github.com/me/docbatch/internal/queue"
)

// Shape is one drawable element on a slide.
type Shape struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Content  any            `json:"content,omitempty"`
	Position map[string]any `json:"position,omitempty"`
	Size     map[string]any `json:"size,omitempty"`
	Format   map[string]any `json:"format,omitempty"`
}

// Presentation is an in-memory slide deck. Slides are created on demand
// when an operation addresses an index past the current deck length.
//
// Presentation implements queue.Handler and every shape contract the
// batch executor probes for, bulk forms included.
type Presentation struct {
	mu     sync.Mutex
	slides [][]*Shape
	nextID int

	logger *slog.Logger
}

// NewPresentation creates an empty deck.
func NewPresentation(logger *slog.Logger) *Presentation {
	return &Presentation{logger: logger.With("component", "presentation")}
}

// Invoke routes a queued operation to the deck.
func (p *Presentation) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case "add_shape":
		slide, err := intArg(args, "slide")
		if err != nil {
			return nil, err
		}
		kind, _ := args["shape_type"].(string)
		position, err := mapArg(args, "position")
		if err != nil {
			return nil, err
		}
		size, err := mapArg(args, "size")
		if err != nil {
			return nil, err
		}
		return p.AddShape(ctx, slide, executor.ShapeSpec{
			Kind:     kind,
			Content:  args["content"],
			Position: position,
			Size:     size,
		})
	case "update_text":
		slide, err := intArg(args, "slide")
		if err != nil {
			return nil, err
		}
		shapeID, err := stringArg(args, "shape_id")
		if err != nil {
			return nil, err
		}
		return p.UpdateShapeText(ctx, slide, shapeID, args["content"])
	case "format_shape":
		slide, err := intArg(args, "slide")
		if err != nil {
			return nil, err
		}
		shapeID, err := stringArg(args, "shape_id")
		if err != nil {
			return nil, err
		}
		options, err := mapArg(args, "options")
		if err != nil {
			return nil, err
		}
		return p.FormatShape(ctx, slide, shapeID, options)
	case "move_shape":
		slide, err := intArg(args, "slide")
		if err != nil {
			return nil, err
		}
		shapeID, err := stringArg(args, "shape_id")
		if err != nil {
			return nil, err
		}
		position, err := mapArg(args, "position")
		if err != nil {
			return nil, err
		}
		return p.MoveShape(ctx, slide, shapeID, position)
	case "slide_count":
		return p.SlideCount(), nil
	default:
		return nil, fmt.Errorf("%w: %q", queue.ErrUnknownMethod, method)
	}
}

// AddShape inserts one shape and returns its generated id.
func (p *Presentation) AddShape(ctx context.Context, slide int, spec executor.ShapeSpec) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shape, err := p.addLocked(slide, spec)
	if err != nil {
		return nil, err
	}
	return shape.ID, nil
}

// AddShapes inserts many shapes on one slide in a single call and
// returns their ids in insertion order.
func (p *Presentation) AddShapes(ctx context.Context, slide int, specs []executor.ShapeSpec) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		shape, err := p.addLocked(slide, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, shape.ID)
	}
	p.logger.Debug("bulk shape insert", "slide", slide, "shapes", len(specs))
	return ids, nil
}

func (p *Presentation) addLocked(slide int, spec executor.ShapeSpec) (*Shape, error) {
	if slide < 0 {
		return nil, fmt.Errorf("slide index %d out of range", slide)
	}
	for len(p.slides) <= slide {
		p.slides = append(p.slides, nil)
	}
	kind := spec.Kind
	if kind == "" {
		kind = "text_box"
	}
	p.nextID++
	shape := &Shape{
		ID:       fmt.Sprintf("shape_%d", p.nextID),
		Kind:     kind,
		Content:  spec.Content,
		Position: spec.Position,
		Size:     spec.Size,
	}
	p.slides[slide] = append(p.slides[slide], shape)
	return shape, nil
}

// UpdateShapeText replaces the content of one shape.
func (p *Presentation) UpdateShapeText(ctx context.Context, slide int, shapeID string, content any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shape, err := p.findLocked(slide, shapeID)
	if err != nil {
		return nil, err
	}
	shape.Content = content
	return shapeID, nil
}

// UpdateShapeTexts replaces the content of many shapes in one call. An
// unknown shape fails the whole call; earlier updates in the slice are
// kept.
func (p *Presentation) UpdateShapeTexts(ctx context.Context, slide int, updates []executor.TextUpdate) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range updates {
		shape, err := p.findLocked(slide, u.ShapeID)
		if err != nil {
			return nil, err
		}
		shape.Content = u.Content
	}
	return len(updates), nil
}

// FormatShape layers formatting options onto one shape.
func (p *Presentation) FormatShape(ctx context.Context, slide int, shapeID string, options map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shape, err := p.findLocked(slide, shapeID)
	if err != nil {
		return nil, err
	}
	p.applyFormatLocked(shape, options)
	return shapeID, nil
}

// FormatShapes layers options onto many shapes in one call.
func (p *Presentation) FormatShapes(ctx context.Context, slide int, formats []executor.ShapeFormat) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range formats {
		shape, err := p.findLocked(slide, f.ShapeID)
		if err != nil {
			return nil, err
		}
		p.applyFormatLocked(shape, f.Options)
	}
	return len(formats), nil
}

func (p *Presentation) applyFormatLocked(shape *Shape, options map[string]any) {
	if shape.Format == nil {
		shape.Format = make(map[string]any, len(options))
	}
	for k, v := range options {
		shape.Format[k] = v
	}
}

// MoveShape repositions one shape.
func (p *Presentation) MoveShape(ctx context.Context, slide int, shapeID string, position map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shape, err := p.findLocked(slide, shapeID)
	if err != nil {
		return nil, err
	}
	shape.Position = position
	return shapeID, nil
}

func (p *Presentation) findLocked(slide int, shapeID string) (*Shape, error) {
	if slide < 0 || slide >= len(p.slides) {
		return nil, fmt.Errorf("slide index %d out of range", slide)
	}
	for _, shape := range p.slides[slide] {
		if shape.ID == shapeID {
			return shape, nil
		}
	}
	return nil, fmt.Errorf("shape %q not found on slide %d", shapeID, slide)
}

// SlideCount returns the current deck length.
func (p *Presentation) SlideCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slides)
}

// Shapes returns copies of the shapes on one slide in insertion order.
func (p *Presentation) Shapes(slide int) []Shape {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slide < 0 || slide >= len(p.slides) {
		return nil
	}
	out := make([]Shape, 0, len(p.slides[slide]))
	for _, shape := range p.slides[slide] {
		out = append(out, *shape)
	}
	return out
}
