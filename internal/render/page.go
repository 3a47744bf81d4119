package render

// PageSize is a paper size in centimeters.
type PageSize struct {
	Width  float64
	Height float64
}

// Paper sizes the invoice layouts use.
var (
	A4     = PageSize{Width: 21.0, Height: 29.7}
	A5     = PageSize{Width: 14.8, Height: 21.0}
	Letter = PageSize{Width: 21.59, Height: 27.94}
)

// Margin is a set of page margins in centimeters.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargin returns a Margin with the same value on all sides.
func UniformMargin(cm float64) Margin {
	return Margin{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// PageConfig controls PDF pagination. Invoices print portrait with
// background graphics on; a nil config or zero-value fields resolve to
// A4, 1 cm margins, scale 1.0.
type PageConfig struct {
	Size            PageSize
	Margin          Margin
	Scale           float64
	PrintBackground bool
}

// DefaultPageConfig returns the invoice defaults.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:            A4,
		Margin:          UniformMargin(1.0),
		Scale:           1.0,
		PrintBackground: true,
	}
}

func (p *PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size == (PageSize{}) {
		r.Size = d.Size
	}
	if r.Margin == (Margin{}) {
		r.Margin = d.Margin
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	return r
}

func cmToInches(cm float64) float64 {
	return cm / 2.54
}

// paperInches returns the paper dimensions in inches, the unit the
// DevTools print API expects.
func (p *PageConfig) paperInches() (width, height float64) {
	r := p.resolved()
	return cmToInches(r.Size.Width), cmToInches(r.Size.Height)
}

// marginInches returns margins converted to inches.
func (p *PageConfig) marginInches() (top, right, bottom, left float64) {
	r := p.resolved()
	return cmToInches(r.Margin.Top),
		cmToInches(r.Margin.Right),
		cmToInches(r.Margin.Bottom),
		cmToInches(r.Margin.Left)
}
