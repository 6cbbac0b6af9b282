package viz

import (
	"fmt"
	"os"
	"strings"
)

// SVG renders every lit dot as a circle. scale is the size of one dot in
// SVG units.
func (c *Canvas) SVG(scale float64, fill string) string {
	width := float64(c.DotsWide()) * scale
	height := float64(c.DotsHigh()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0c0c1c"/>
<g fill="%s">
`, width, height, width, height, fill)

	r := scale * 0.4
	for y := 0; y < c.DotsHigh(); y++ {
		for x := 0; x < c.DotsWide(); x++ {
			if c.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SaveSVG writes the canvas to path.
func (c *Canvas) SaveSVG(path string, scale float64, fill string) error {
	return os.WriteFile(path, []byte(c.SVG(scale, fill)), 0644)
}
