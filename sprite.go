package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const (
	spriteColumns = 8
	spriteDim     = 96 // square thumbnail region per cell
	spriteLabel   = 20 // label strip below the thumbnail
)

var (
	drawFont, _ = opentype.Parse(gomono.TTF)

	facePool = &sync.Pool{
		New: func() any {
			f0, _ := opentype.NewFace(drawFont, &opentype.FaceOptions{
				Size:    12,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			return f0
		},
	}

	rowSep = image.NewUniform(color.RGBA{220, 220, 220, 255})
)

var labelEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")

// decodeImage sniffs and decodes whatever raster format Telegram served the
// thumbnail in (webp for most sticker sets, jpeg/png otherwise).
func decodeImage(blob []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(blob))
	return img, err
}

func spriteRows(n int) int {
	return (n + spriteColumns - 1) / spriteColumns
}

// cellOrigin maps the i-th emoji to the pixel origin of its grid cell.
func cellOrigin(i int) (x, y int) {
	return i % spriteColumns * spriteDim, i / spriteColumns * (spriteDim + spriteLabel)
}

// labelText names a cell: 1-based index plus the id's last 6 characters, with
// markup-significant characters escaped.
func labelText(index int, id string) string {
	if r := []rune(id); len(r) > 6 {
		id = string(r[len(r)-6:])
	}
	return labelEscaper.Replace(fmt.Sprintf("#%d …%s", index, id))
}

// composeSprite lays emojis out on an 8-column grid and writes one PNG per
// pack into dir, overwriting any previous sheet. thumbs is aligned with
// emojis by position; a missing or undecodable thumbnail leaves that cell's
// image area blank but its label is drawn regardless.
func composeSprite(dir, packName string, emojis []Emoji, thumbs [][]byte) (string, error) {
	if len(emojis) == 0 {
		return "", nil
	}

	rows := spriteRows(len(emojis))
	canvas := image.NewRGBA(image.Rect(0, 0, spriteColumns*spriteDim, rows*(spriteDim+spriteLabel)))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Pt(0, 0), draw.Src)

	face := facePool.Get().(font.Face)
	defer facePool.Put(face)
	d := &font.Drawer{Dst: canvas, Src: image.Black, Face: face}

	for i, e := range emojis {
		x, y := cellOrigin(i)

		if i < len(thumbs) && len(thumbs[i]) > 0 {
			img, err := decodeImage(thumbs[i])
			if err != nil {
				logrus.Infof("pack %s: thumbnail #%d undecodable, cell left blank: %v", packName, i+1, err)
			} else {
				fit := resize.Thumbnail(spriteDim, spriteDim, img, resize.Bicubic)
				w, h := fit.Bounds().Dx(), fit.Bounds().Dy()
				ox, oy := x+(spriteDim-w)/2, y+(spriteDim-h)/2
				draw.Draw(canvas, image.Rect(ox, oy, ox+w, oy+h), fit, image.Pt(0, 0), draw.Over)
			}
		}

		label := labelText(i+1, e.ID)
		d.Dot.X = fixed.I(x + (spriteDim-d.MeasureString(label).Round())/2)
		d.Dot.Y = fixed.I(y + spriteDim + spriteLabel - 6)
		d.DrawString(label)

		if i%spriteColumns == 0 {
			sy := y + spriteDim + spriteLabel - 1
			draw.Draw(canvas, image.Rect(0, sy, canvas.Bounds().Dx(), sy+1), rowSep, image.Pt(0, 0), draw.Src)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	path := filepath.Join(dir, packName+".png")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create preview %s: %w", path, err)
	}
	defer out.Close()
	if err := png.Encode(out, canvas); err != nil {
		return "", fmt.Errorf("encode preview %s: %w", path, err)
	}
	return path, nil
}
