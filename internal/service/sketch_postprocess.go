package service

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/disintegration/imaging"
)

const (
	// Channel values below this are treated as line work and forced to
	// pure black.
	blackThreshold = 60

	// Standard deviation of the per-channel noise added for a hand-drawn
	// feel.
	noiseSigma = 2.0
)

// postprocessSketch enforces a consistent marker-sketch look on provider
// output: a slight blur then sharpen to mimic marker bleed, near-black
// pixels forced to pure black, and light noise.
func postprocessSketch(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode sketch: %w", err)
	}

	img := imaging.Blur(src, 0.3)
	img = imaging.Sharpen(img, 1.0)

	bounds := img.Bounds()
	rng := rand.New(rand.NewSource(int64(bounds.Dx())<<16 | int64(bounds.Dy())))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			r, g, b := row[x], row[x+1], row[x+2]
			if r < blackThreshold && g < blackThreshold && b < blackThreshold {
				r, g, b = 0, 0, 0
			}
			row[x] = noisy(rng, r)
			row[x+1] = noisy(rng, g)
			row[x+2] = noisy(rng, b)
		}
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode sketch: %w", err)
	}
	return out.Bytes(), nil
}

func noisy(rng *rand.Rand, v uint8) uint8 {
	n := int(v) + int(rng.NormFloat64()*noiseSigma)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
