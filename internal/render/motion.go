package render

import (
	"hash/fnv"
	"math/rand"
)

// Motion names the subtle camera move applied to a static sketch.
type Motion string

const (
	MotionZoomIn   Motion = "zoom_in"
	MotionZoomOut  Motion = "zoom_out"
	MotionPanLeft  Motion = "pan_left"
	MotionPanRight Motion = "pan_right"
	MotionPanUp    Motion = "pan_up"
	MotionPanDown  Motion = "pan_down"
)

var motions = []Motion{
	MotionZoomIn,
	MotionZoomOut,
	MotionPanLeft,
	MotionPanRight,
	MotionPanUp,
	MotionPanDown,
}

// motionPicker assigns motions deterministically so a re-render of the same
// project produces the same video.
type motionPicker struct {
	seed int64
}

func newMotionPicker(seed int64, projectID string) motionPicker {
	if seed == 0 {
		h := fnv.New64a()
		h.Write([]byte(projectID))
		seed = int64(h.Sum64())
	}
	return motionPicker{seed: seed}
}

func (p motionPicker) pick(sceneIndex int) Motion {
	rng := rand.New(rand.NewSource(p.seed + int64(sceneIndex)))
	return motions[rng.Intn(len(motions))]
}

// zoompanExpr returns the zoom, x and y expressions for the motion. frames
// is the clip length at the output frame rate.
func zoompanExpr(m Motion) (zoom, x, y string) {
	const (
		center  = "iw/2-(iw/zoom/2)"
		middle  = "ih/2-(ih/zoom/2)"
		zoomIn  = "min(zoom+0.0015,1.5)"
		zoomOut = "max(1.5-0.0015*on,1.0)"
		steady  = "1.2"
	)

	switch m {
	case MotionZoomOut:
		return zoomOut, center, middle
	case MotionPanLeft:
		return steady, "max(iw-iw/zoom-on*2,0)", middle
	case MotionPanRight:
		return steady, "min(on*2,iw-iw/zoom)", middle
	case MotionPanUp:
		return steady, center, "max(ih-ih/zoom-on*2,0)"
	case MotionPanDown:
		return steady, center, "min(on*2,ih-ih/zoom)"
	default:
		return zoomIn, center, middle
	}
}
