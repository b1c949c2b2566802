package convert

import "context"

// Gate holds back work until resources allow it. *memory.Guard is one.
type Gate interface {
	Wait(ctx context.Context) error
}

// Gated returns a Converter that waits on g before every conversion.
func Gated(c Converter, g Gate) Converter {
	return &gated{Converter: c, gate: g}
}

type gated struct {
	Converter
	gate Gate
}

func (c *gated) Resize(ctx context.Context, src, dst string, width, height, quality int) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}
	return c.Converter.Resize(ctx, src, dst, width, height, quality)
}

func (c *gated) Thumbnail(ctx context.Context, src, dst string, width, height, quality int) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}
	return c.Converter.Thumbnail(ctx, src, dst, width, height, quality)
}
