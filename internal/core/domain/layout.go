package domain

// Glyph is one rendered character run. Y grows downward from the top of the page.
type Glyph struct {
	Text     string
	FontSize float64
	X        float64
	Y        float64
	Width    float64
}

// TextLine is a line already assembled by the extractor. FontSize is zero when
// the source carries no size information.
type TextLine struct {
	Text     string
	FontSize float64
	Y        float64
}

// Page carries either raw glyphs or pre-assembled lines.
type Page struct {
	Number int
	Glyphs []Glyph
	Lines  []TextLine
}

// Layout is the positional view of a source document used for structure
// detection.
type Layout struct {
	Format    string
	SizeBytes int64
	Pages     []Page
	Info      map[string]string
}
