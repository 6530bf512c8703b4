package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	zxunwarp "github.com/ericlevine/zxunwarp"
	"github.com/ericlevine/zxunwarp/transform"
)

type generateOptions struct {
	size   int
	margin int
	level  string
	bow    int
	skew   float64
}

func newGenerateCmd(a *app) *cobra.Command {
	var o generateOptions
	cmd := &cobra.Command{
		Use:   "generate <text> <output-file>",
		Short: "Render a QR code, optionally distorted, for testing",
		Long: `Render text as a QR code image. The symbol can be bowed with one of the
warp variants the scanner corrects for (--bow 0..3) and keystoned with --skew,
which is useful to check what the scanner recovers.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := o.render(args[0])
			if err != nil {
				return err
			}
			if err := a.images().Save(args[1], img); err != nil {
				return err
			}
			a.log.Info("generated symbol",
				zap.String("path", args[1]),
				zap.Int("bow", o.bow),
				zap.Float64("skew", o.skew))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.size, "size", 256, "symbol size in pixels")
	f.IntVar(&o.margin, "margin", 0, "white margin added around the symbol, in pixels")
	f.StringVar(&o.level, "level", "M", "error correction level: L, M, Q or H")
	f.IntVar(&o.bow, "bow", -1, "warp variant to apply, 0 to 3 (-1 for none)")
	f.Float64Var(&o.skew, "skew", 0, "keystone the symbol by narrowing its top edge by this fraction of the width")
	return cmd
}

func parseRecoveryLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(s) {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("unknown error correction level %q", s)
}

func (o generateOptions) render(text string) (image.Image, error) {
	level, err := parseRecoveryLevel(o.level)
	if err != nil {
		return nil, err
	}
	variants := zxunwarp.WarpVariants()
	if o.bow < -1 || o.bow >= len(variants) {
		return nil, fmt.Errorf("bow %d out of range [-1, %d]", o.bow, len(variants)-1)
	}
	if o.skew < 0 || o.skew >= 1 {
		return nil, fmt.Errorf("skew %v out of range [0, 1)", o.skew)
	}
	q, err := qrcode.New(text, level)
	if err != nil {
		return nil, err
	}
	var sym image.Image = q.Image(o.size)
	if o.margin > 0 {
		b := sym.Bounds()
		canvas := imaging.New(b.Dx()+2*o.margin, b.Dy()+2*o.margin, color.White)
		sym = imaging.PasteCenter(canvas, sym)
	}

	img, err := zxunwarp.FromImage(sym)
	if err != nil {
		return nil, err
	}
	if o.bow >= 0 {
		if img, err = zxunwarp.Warp(img, variants[o.bow]); err != nil {
			return nil, err
		}
	}
	if o.skew > 0 {
		if img, err = keystone(img, o.skew); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func keystone(img *zxunwarp.Image, skew float64) (*zxunwarp.Image, error) {
	w, h, f := img.Width(), img.Height(), img.Format()
	dst := make([]byte, w*h*f.PixelStride())
	t := transform.Keystone(w, h, skew)
	if err := transform.Remap(dst, img.Pix(), w, h, f.PixelStride(), t); err != nil {
		return nil, err
	}
	return zxunwarp.NewImage(dst, w, h, f, 0)
}
