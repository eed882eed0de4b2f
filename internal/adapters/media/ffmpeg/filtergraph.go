package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/overlay"
)

const (
	labelVideo = "vout"
	labelMark  = "wm"
)

// BuildFilterGraph renders the package into an ffmpeg filtergraph reading
// the source from input 0 and, when watermark is true, the watermark image
// from input 1. The output pad is [vout].
//
// ffmpeg auto-rotates input frames, so the source is scaled straight into
// the fitted video rect. Discrete text animations become one drawtext per
// segment, enabled only inside that segment.
func BuildFilterGraph(pkg *composition.Package, fontFile string, watermark bool) string {
	g := &graphBuilder{pkg: pkg, font: fontFile}
	rect := pkg.Instructions[0].VideoRect
	render := pkg.RenderSize

	chain := []string{
		fmt.Sprintf("scale=%d:%d", even(rect.Width), even(rect.Height)),
		fmt.Sprintf("pad=%d:%d:%d:%d:color=black", int(render.Width), int(render.Height), int(rect.X), int(rect.Y)),
		"setsar=1",
		fmt.Sprintf("fps=%s", num(pkg.FrameRate)),
	}
	if pkg.Scene != nil {
		for _, l := range pkg.Scene.Layers {
			chain = append(chain, g.layer(l)...)
		}
	}

	var b strings.Builder
	b.WriteString("[0:v]")
	b.WriteString(strings.Join(chain, ","))

	mark, ok := g.watermark()
	if !watermark || !ok {
		b.WriteString(",format=yuv420p[" + labelVideo + "]")
		return b.String()
	}
	b.WriteString("[base];")
	fmt.Fprintf(&b, "[1:v]scale=%d:%d,format=rgba,colorchannelmixer=aa=%s[%s];",
		even(mark.Frame.Width), even(mark.Frame.Height), num(mark.Opacity), labelMark)
	fmt.Fprintf(&b, "[base][%s]overlay=x=%d:y=%d:shortest=1,format=yuv420p[%s]",
		labelMark, int(mark.Frame.X), int(mark.Frame.Y), labelVideo)
	return b.String()
}

type graphBuilder struct {
	pkg  *composition.Package
	font string
}

func (g *graphBuilder) watermark() (overlay.Layer, bool) {
	if g.pkg.Scene == nil {
		return overlay.Layer{}, false
	}
	return g.pkg.Scene.Layer(overlay.LayerWatermark)
}

func (g *graphBuilder) layer(l overlay.Layer) []string {
	switch l.Kind {
	case overlay.KindRect:
		if l.Opacity <= 0 {
			return nil
		}
		return []string{"drawbox=" + filterOptions(
			"x", strconv.Itoa(int(l.Frame.X)),
			"y", strconv.Itoa(int(l.Frame.Y)),
			"w", strconv.Itoa(int(l.Frame.Width)),
			"h", strconv.Itoa(int(l.Frame.Height)),
			"color", color(l.Color, l.Opacity),
			"t", "fill",
		)}
	case overlay.KindText:
		return g.text(l)
	default:
		return nil
	}
}

func (g *graphBuilder) text(l overlay.Layer) []string {
	scene := g.pkg.Scene
	fade, hasFade := scene.Animation(l.Name, overlay.PropertyOpacity)
	anim, hasText := scene.Animation(l.Name, overlay.PropertyText)

	if !hasFade && l.Opacity <= 0 {
		return nil
	}
	alpha := l.Opacity
	var alphaExpr, window string
	if hasFade {
		alpha = 1
		alphaExpr = opacityExpr(fade)
		window = visibleWindow(fade)
		if window == "" {
			return nil
		}
	}

	if !hasText {
		return []string{g.drawtext(l, l.Text, alpha, alphaExpr, window)}
	}
	segments := anim.Segments()
	out := make([]string, 0, len(segments))
	for i, s := range segments {
		enable := fmt.Sprintf("gte(t,%s)*lt(t,%s)", num(s.Start), num(s.End))
		if i == len(segments)-1 {
			enable = fmt.Sprintf("gte(t,%s)", num(s.Start))
		}
		if window != "" {
			enable = window + "*" + enable
		}
		out = append(out, g.drawtext(l, s.Text, alpha, alphaExpr, enable))
	}
	return out
}

func (g *graphBuilder) drawtext(l overlay.Layer, text string, alpha float64, alphaExpr, enable string) string {
	f := l.Frame
	var x string
	switch l.Align {
	case overlay.AlignCenter:
		x = fmt.Sprintf("%s+(%s-text_w)/2", num(f.X), num(f.Width))
	case overlay.AlignRight:
		x = fmt.Sprintf("%s-text_w", num(f.X+f.Width))
	default:
		x = num(f.X)
	}
	kv := []string{}
	if g.font != "" {
		kv = append(kv, "fontfile", g.font)
	}
	kv = append(kv,
		"expansion", "none",
		"text", text,
		"fontsize", strconv.Itoa(max(int(l.FontSize), 1)),
		"fontcolor", color(l.Color, alpha),
		"x", x,
		"y", fmt.Sprintf("%s+(%s-text_h)/2", num(f.Y), num(f.Height)),
	)
	if alphaExpr != "" {
		kv = append(kv, "alpha", alphaExpr)
	}
	if enable != "" {
		kv = append(kv, "enable", enable)
	}
	return "drawtext=" + filterOptions(kv...)
}

// opacityExpr builds a piecewise linear expression of t over the keys.
func opacityExpr(a overlay.Animation) string {
	keys := a.Opacity
	expr := num(keys[len(keys)-1].Opacity)
	for i := len(keys) - 1; i > 0; i-- {
		t0, t1 := keys[i-1].KeyTime*a.Duration, keys[i].KeyTime*a.Duration
		v0, v1 := keys[i-1].Opacity, keys[i].Opacity
		seg := num(v0)
		if t1 > t0 && v0 != v1 && a.Calculation == overlay.Linear {
			seg = fmt.Sprintf("%s+(t-%s)*%s", num(v0), num(t0), num((v1-v0)/(t1-t0)))
		}
		expr = fmt.Sprintf("if(lt(t,%s),%s,%s)", num(t1), seg, expr)
	}
	return expr
}

// visibleWindow limits drawing to the span where opacity is non-zero.
func visibleWindow(a overlay.Animation) string {
	start, end := -1.0, -1.0
	for i, k := range a.Opacity {
		if k.Opacity <= 0 {
			continue
		}
		t := k.KeyTime * a.Duration
		if start < 0 {
			start = t
			if i > 0 {
				start = a.Opacity[i-1].KeyTime * a.Duration
			}
		}
		end = t
		if i+1 < len(a.Opacity) {
			end = a.Opacity[i+1].KeyTime * a.Duration
		}
	}
	if start < 0 {
		return ""
	}
	return fmt.Sprintf("between(t,%s,%s)", num(start), num(end))
}

// filterOptions joins key/value pairs with option and filtergraph escaping.
func filterOptions(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, kv[i]+"="+escapeGraph(escapeOption(kv[i+1])))
	}
	return strings.Join(parts, ":")
}

func escapeOption(s string) string {
	return escape(s, `\':`)
}

func escapeGraph(s string) string {
	return escape(s, `\'[],;`)
}

func escape(s, special string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func color(hex string, alpha float64) string {
	if hex == "" {
		hex = "#FFFFFF"
	}
	return fmt.Sprintf("%s@%s", hex, num(min(max(alpha, 0), 1)))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// even rounds down to an even pixel count, at least 2.
func even(v float64) int {
	return max(int(v)/2*2, 2)
}
