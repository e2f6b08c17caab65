package ocr

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// PreprocessOptions tunes the cleanup applied before recognition.
type PreprocessOptions struct {
	DenoiseStrength int // gaussian radius in tenths of a pixel; 0 disables
	BlockSize       int // adaptive threshold neighbourhood, odd
	C               int // constant subtracted from the local mean
}

// minSkew is the smallest estimated rotation, in degrees, worth correcting.
const minSkew = 0.5

// Preprocess converts img to a deskewed binary image and reports the rotation applied.
func Preprocess(img image.Image, opts PreprocessOptions) (*image.Gray, float64) {
	if opts.BlockSize < 3 {
		opts.BlockSize = 11
	}
	if opts.BlockSize%2 == 0 {
		opts.BlockSize++
	}

	var src image.Image = imaging.Grayscale(img)
	if opts.DenoiseStrength > 0 {
		src = blur.Gaussian(src, float64(opts.DenoiseStrength)/10)
	}
	binary := AdaptiveThreshold(toGray(src), opts.BlockSize, opts.C)
	return Deskew(binary)
}

// toGray copies img into an *image.Gray anchored at the origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return g
}

// AdaptiveThreshold binarizes src against the mean of each pixel's block x block
// neighbourhood minus c: brighter pixels become white, the rest black.
func AdaptiveThreshold(src *image.Gray, block, c int) *image.Gray {
	src = toGray(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	stride := w + 1
	integral := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(src.Pix[y*src.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	r := block / 2
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r, w-1)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			mean := float64(sum) / float64((x1-x0+1)*(y1-y0+1))
			if float64(src.Pix[y*src.Stride+x]) > mean-float64(c) {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// Deskew rotates img by its estimated skew when that exceeds minSkew degrees.
func Deskew(img *image.Gray) (*image.Gray, float64) {
	angle, ok := EstimateSkew(img)
	if !ok || math.Abs(angle) <= minSkew {
		return img, 0
	}
	return toGray(imaging.Rotate(img, angle, color.White)), angle
}

type point struct{ x, y float64 }

// EstimateSkew returns the angle, in degrees within (-45, 45], of the minimum-area rectangle
// enclosing the dark pixels of img. Positive means content runs down to the right.
func EstimateSkew(img *image.Gray) (float64, bool) {
	b := img.Bounds()
	// the hull of a point set only depends on each row's outermost points
	var pts []point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		first, last := -1, -1
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y < 128 {
				if first < 0 {
					first = x
				}
				last = x
			}
		}
		if first >= 0 {
			pts = append(pts, point{float64(first), float64(y)})
			if last != first {
				pts = append(pts, point{float64(last), float64(y)})
			}
		}
	}
	if len(pts) < 10 {
		return 0, false
	}

	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0, false
	}

	bestArea := math.Inf(1)
	var bestAngle float64
	for i := range hull {
		p, q := hull[i], hull[(i+1)%len(hull)]
		theta := math.Atan2(q.y-p.y, q.x-p.x)
		cos, sin := math.Cos(theta), math.Sin(theta)
		minU, maxU := math.Inf(1), math.Inf(-1)
		minN, maxN := math.Inf(1), math.Inf(-1)
		for _, h := range hull {
			u := h.x*cos + h.y*sin
			n := -h.x*sin + h.y*cos
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minN, maxN = math.Min(minN, n), math.Max(maxN, n)
		}
		if area := (maxU - minU) * (maxN - minN); area < bestArea {
			bestArea, bestAngle = area, theta*180/math.Pi
		}
	}

	for bestAngle > 45 {
		bestAngle -= 90
	}
	for bestAngle <= -45 {
		bestAngle += 90
	}
	return bestAngle, true
}

// convexHull is Andrew's monotone chain; the result is counter-clockwise without repeats.
func convexHull(pts []point) []point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})
	cross := func(o, a, b point) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
