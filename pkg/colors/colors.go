// Package colors computes the vertex colors used to visualize skin weights.
package colors

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// RGB is a color with components in [0, 1].
type RGB struct {
	R, G, B float64
}

// Lerp interpolates from c to other by t.
func (c RGB) Lerp(other RGB, t float64) RGB {
	return RGB{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

// Theme selects how weights are displayed on the mesh.
type Theme int

const (
	ThemeMax               Theme = iota // blue-green-red gradient
	ThemeMaya                           // dark red-orange-yellow gradient
	ThemeSoftimage                      // every influence in its own color
	ThemeMaximumInfluences              // highlights vertexes over the influence limit
)

// String returns the theme name as used in config files.
func (t Theme) String() string {
	switch t {
	case ThemeMax:
		return "max"
	case ThemeMaya:
		return "maya"
	case ThemeSoftimage:
		return "softimage"
	case ThemeMaximumInfluences:
		return "max_influences"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseTheme converts a config name to a Theme.
func ParseTheme(name string) (Theme, error) {
	switch strings.ToLower(name) {
	case "max", "":
		return ThemeMax, nil
	case "maya":
		return ThemeMaya, nil
	case "softimage":
		return ThemeSoftimage, nil
	case "max_influences", "maximum_influences":
		return ThemeMaximumInfluences, nil
	default:
		return ThemeMax, fmt.Errorf("unknown color theme %q", name)
	}
}

// Palette holds the gradient stops for single-influence display.
type Palette struct {
	Low  RGB // weight 0.0
	Mid  RGB // weight 0.5
	End  RGB // weight approaching 1.0
	None RGB // influence not on the vertex
	Full RGB // weight exactly 1.0
}

// Palette returns the gradient for a theme.
func (t Theme) Palette() Palette {
	switch t {
	case ThemeMax:
		return Palette{
			Low:  RGB{0, 0, 1},
			Mid:  RGB{0, 1, 0},
			End:  RGB{1, 0, 0},
			None: RGB{0.05, 0.05, 0.05},
			Full: RGB{1, 1, 1},
		}
	case ThemeMaya:
		return Palette{
			Low:  RGB{0.5, 0, 0},
			Mid:  RGB{1, 0.5, 0},
			End:  RGB{1, 1, 0},
			None: RGB{0, 0, 0},
			Full: RGB{1, 1, 1},
		}
	default:
		return Palette{}
	}
}

// WeightColor returns the color representing w on a three-stop gradient.
func WeightColor(w float64, p Palette) RGB {
	switch {
	case w == 1:
		return p.Full
	case w < 0.5:
		return p.Low.Lerp(p.Mid, w*2)
	default:
		return p.Mid.Lerp(p.End, (w-0.5)*2)
	}
}

// InfluenceColors gives each influence a distinct hue. The order is shuffled
// with a fixed seed so neighboring joints don't get neighboring hues, and the
// result is stable between calls.
func InfluenceColors(infs []string) map[string]RGB {
	shuffled := append([]string(nil), infs...)
	sort.Strings(shuffled)
	rng := rand.New(rand.NewSource(0))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make(map[string]RGB, len(shuffled))
	if len(shuffled) == 0 {
		return out
	}
	step := 360.0 / float64(len(shuffled))
	for i, inf := range shuffled {
		out[inf] = HSV(step*float64(i), 250.0/255, 150.0/255)
	}
	return out
}

// HSV converts hue in degrees, saturation and value in [0, 1] to RGB.
func HSV(h, s, v float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return RGB{r + m, g + m, b + m}
}

// Blend mixes influence colors by their weights.
func Blend(weights map[string]float64, infColors map[string]RGB) RGB {
	var out RGB
	for inf, w := range weights {
		c := infColors[inf]
		out.R += c.R * w
		out.G += c.G * w
		out.B += c.B * w
	}
	return out
}

// Over-limit colors used by the maximum influences theme.
var (
	WithinLimit = RGB{0.1, 0.1, 0.1}
	AtLimit     = RGB{0, 0.6, 0}
	OverLimit   = RGB{1, 0, 0}
)

// MaxInfluences colors a vertex by how its influence count compares to limit.
func MaxInfluences(count, limit int) RGB {
	switch {
	case count > limit:
		return OverLimit
	case count == limit:
		return AtLimit
	default:
		return WithinLimit
	}
}
