package thread

import "hash/fnv"

type ColorName string

const (
	ColorCrimson     ColorName = "crimson"
	ColorVermilion   ColorName = "vermilion"
	ColorBurlap      ColorName = "burlap"
	ColorForest      ColorName = "forest"
	ColorWintergreen ColorName = "wintergreen"
	ColorTeal        ColorName = "teal"
	ColorBlue        ColorName = "blue"
	ColorIndigo      ColorName = "indigo"
	ColorViolet      ColorName = "violet"
	ColorPlum        ColorName = "plum"
	ColorTaupe       ColorName = "taupe"
	ColorSteel       ColorName = "steel"

	ColorDefault = ColorSteel
)

// Palette order is persisted indirectly through StableColorName; append only.
var palette = []ColorName{
	ColorCrimson,
	ColorVermilion,
	ColorBurlap,
	ColorForest,
	ColorWintergreen,
	ColorTeal,
	ColorBlue,
	ColorIndigo,
	ColorViolet,
	ColorPlum,
	ColorTaupe,
	ColorSteel,
}

func ColorNames() []ColorName {
	out := make([]ColorName, len(palette))
	copy(out, palette)
	return out
}

func (c ColorName) Valid() bool {
	for _, p := range palette {
		if p == c {
			return true
		}
	}
	return false
}

// StableColorName maps a seed onto the palette; equal seeds always produce
// the same color.
func StableColorName(seed string) ColorName {
	if seed == "" {
		return ColorDefault
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return palette[h.Sum32()%uint32(len(palette))]
}
