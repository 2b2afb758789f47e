package render

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
)

// Video frame dimensions.
const (
	FrameWidth  = 1920
	FrameHeight = 1080
)

var (
	titleStart = mustHex("#667eea")
	titleEnd   = mustHex("#764ba2")
)

// TitleCard renders the opening frame: the wrapped story title centred on
// a purple gradient with subtitle beneath it.
func TitleCard(fonts *Fonts, title, subtitle string) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	diagonal(img, Stop{0, titleStart}, Stop{1, titleEnd})

	heading, err := fonts.Face(80, true)
	if err != nil {
		return nil, err
	}
	defer heading.Close()
	sub, err := fonts.Face(40, false)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	lines := Wrap(title, 1600, measurer(heading))
	DrawLines(img, heading, lines, FrameWidth/2, 540, 100, AlignCenter, white)

	if subtitle != "" {
		DrawText(img, sub, subtitle, FrameWidth/2, 800, AlignCenter, withAlpha(white, 0.8))
	}
	return img, nil
}

// PreviewScene is one entry in a storyboard preview.
type PreviewScene struct {
	Description string
}

// Preview renders a storyboard of up to four scenes in a 2x2 grid under the
// title and formatted duration.
func Preview(fonts *Fonts, title string, totalSeconds int, scenes []PreviewScene) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	diagonal(img, Stop{0, titleStart}, Stop{1, titleEnd})

	faces := map[string]struct {
		size float64
		bold bool
	}{
		"title":    {60, true},
		"duration": {30, false},
		"label":    {24, true},
		"body":     {18, false},
		"footer":   {24, false},
	}
	loaded := map[string]font.Face{}
	for name, opt := range faces {
		f, err := fonts.Face(opt.size, opt.bold)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		loaded[name] = f
	}

	DrawText(img, loaded["title"], title, FrameWidth/2, 150, AlignCenter, white)
	duration := fmt.Sprintf("Duration: %d:%02d minutes", totalSeconds/60, totalSeconds%60)
	DrawText(img, loaded["duration"], duration, FrameWidth/2, 200, AlignCenter, withAlpha(white, 0.8))

	const (
		cellWidth  = 400
		cellHeight = 200
		gap        = 100
		top        = 300
	)
	left := (FrameWidth - (cellWidth*2 + gap)) / 2

	for i := 0; i < len(scenes) && i < 4; i++ {
		x := left + (i%2)*(cellWidth+gap)
		y := top + (i/2)*(cellHeight+gap)

		FillRect(img, image.Rect(x, y, x+cellWidth, y+cellHeight), withAlpha(white, 0.1))
		DrawText(img, loaded["label"], fmt.Sprintf("Scene %d", i+1), x+20, y+40, AlignLeft, white)

		lines := Wrap(scenes[i].Description, cellWidth-40, measurer(loaded["body"]))
		if len(lines) > 6 {
			lines = lines[:6]
		}
		for j, line := range lines {
			DrawText(img, loaded["body"], line, x+20, y+70+j*22, AlignLeft, withAlpha(white, 0.9))
		}
	}

	footer := withAlpha(white, 0.7)
	DrawText(img, loaded["footer"], fmt.Sprintf("%d-Scene MP4 Video with AI-Generated Scenes", len(scenes)), FrameWidth/2, 950, AlignCenter, footer)
	DrawText(img, loaded["footer"], "AI Narration | Custom Images | Multi-Language Support", FrameWidth/2, 980, AlignCenter, footer)

	return img, nil
}
