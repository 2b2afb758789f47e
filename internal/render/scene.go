package render

import (
	"fmt"
	"image"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// SceneSize is the edge length of a procedurally rendered scene image.
const SceneSize = 1024

// overlayAlpha scales every decorative shape's own opacity.
const overlayAlpha = 0.3

// SceneRenderer draws illustrative stand-in images for story scenes.
type SceneRenderer struct {
	fonts *Fonts

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSceneRenderer creates a renderer. A nil rng seeds one from the clock.
func NewSceneRenderer(fonts *Fonts, rng *rand.Rand) *SceneRenderer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &SceneRenderer{fonts: fonts, rng: rng}
}

// Draw renders one scene: keyword-driven gradient, decorative overlays,
// an ordinal badge, the wrapped description and a language tag.
func (r *SceneRenderer) Draw(description string, ordinal int, languageName string) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, SceneSize, SceneSize))

	diagonal(img, PaletteFor(description, ordinal).stops()...)
	r.drawOverlays(img, description)

	if err := r.drawLabels(img, description, ordinal, languageName); err != nil {
		return nil, err
	}
	return img, nil
}

func (r *SceneRenderer) drawOverlays(img *image.RGBA, description string) {
	desc := strings.ToLower(description)

	r.mu.Lock()
	defer r.mu.Unlock()
	rnd := r.rng.Float64

	if containsAny(desc, []string{"nature", "organic", "life"}) {
		for i := 0; i < 5; i++ {
			x, y := rnd()*SceneSize, rnd()*SceneSize
			radius := rnd()*100 + 50
			FillCircle(img, x, y, radius, withAlpha(white, overlayAlpha*rnd()*0.3))
		}
	}

	if containsAny(desc, []string{"building", "house", "structure"}) {
		for i := 0; i < 3; i++ {
			c := withAlpha(white, overlayAlpha*rnd()*0.2)
			x, y := int(rnd()*800), int(rnd()*800)
			w, h := int(rnd()*200+100), int(rnd()*200+100)
			FillRect(img, image.Rect(x, y, x+w, y+h), c)
		}
	}

	if containsAny(desc, []string{"action", "movement", "journey"}) {
		for i := 0; i < 4; i++ {
			x, y := rnd()*SceneSize, rnd()*SceneSize
			p1 := Point{x + rnd()*100, y + rnd()*100}
			p2 := Point{x - rnd()*100, y + rnd()*100}
			FillPolygon(img, withAlpha(white, overlayAlpha*rnd()*0.25), Point{x, y}, p1, p2)
		}
	}
}

func (r *SceneRenderer) drawLabels(img *image.RGBA, description string, ordinal int, languageName string) error {
	badge, err := r.fonts.Face(36, true)
	if err != nil {
		return err
	}
	defer badge.Close()
	caption, err := r.fonts.Face(28, false)
	if err != nil {
		return err
	}
	defer caption.Close()
	tag, err := r.fonts.Face(20, false)
	if err != nil {
		return err
	}
	defer tag.Close()

	FillRect(img, image.Rect(50, 50, 200, 130), withAlpha(black, 0.7))
	DrawText(img, badge, fmt.Sprintf("Scene %d", ordinal), 125, 90, AlignCenter, white)

	FillRect(img, image.Rect(0, 850, SceneSize, SceneSize), withAlpha(black, 0.8))
	lines := Wrap(description, 950, measurer(caption))
	DrawLines(img, caption, lines, SceneSize/2, 937, 35, AlignCenter, white)

	DrawText(img, tag, "Generated for "+languageName, 974, 1000, AlignRight, withAlpha(white, 0.7))
	return nil
}
