package layout

import "clipforge/internal/script"

// BrandOptions positions the two-part branding watermark.
type BrandOptions struct {
	FontSize     int
	MarginX      int
	MarginBottom int
	// NonLatinLift raises the project text so its baseline lines up with the
	// prefix when the project name uses a non-English font.
	NonLatinLift int
}

// DefaultBrandOptions returns the stock watermark geometry.
func DefaultBrandOptions() BrandOptions {
	return BrandOptions{FontSize: 18, MarginX: 20, MarginBottom: 20, NonLatinLift: 2}
}

// Brand is the placement of the prefix and project parts of the watermark.
type Brand struct {
	FontSize int
	PrefixX  int
	PrefixY  int
	ProjectX int
	ProjectY int
}

// PlaceBrand places the prefix at the bottom-left margin and the project name
// immediately to its right. prefixWidth is the measured width of the prefix.
func PlaceBrand(geom Geometry, prefixWidth int, project script.Script, opts BrandOptions) Brand {
	if opts.FontSize <= 0 {
		opts = DefaultBrandOptions()
	}
	y := geom.Height - opts.FontSize - opts.MarginBottom
	b := Brand{
		FontSize: opts.FontSize,
		PrefixX:  opts.MarginX,
		PrefixY:  y,
		ProjectX: opts.MarginX + prefixWidth,
		ProjectY: y,
	}
	if project != script.English {
		b.ProjectY -= opts.NonLatinLift
	}
	return b
}
