// Package thumbs downloads item images and serves them as small WebP thumbnails.
package thumbs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/cache"
	"github.com/woozymasta/ecoleta/internal/metrics"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxSourceBytes = 8 << 20

// Thumb is an encoded image ready to be served.
type Thumb struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Thumbnailer fetches, scales and caches item images.
// Vector or undecodable sources (item icons are usually SVG) pass through unchanged.
type Thumbnailer struct {
	client  *http.Client
	cache   cache.Cache
	ttl     time.Duration
	size    int
	quality float32
}

// New creates a Thumbnailer producing size x size images. c may be nil.
func New(client *http.Client, c cache.Cache, ttl time.Duration, size, quality int) *Thumbnailer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if size <= 0 {
		size = 96
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &Thumbnailer{client: client, cache: c, ttl: ttl, size: size, quality: float32(quality)}
}

// Get returns the thumbnail of the image at url.
func (t *Thumbnailer) Get(ctx context.Context, url string) (Thumb, error) {
	key := fmt.Sprintf("thumb:%d:%s", t.size, url)

	if t.cache != nil {
		if raw, ok, err := t.cache.Get(ctx, key); err == nil && ok {
			var th Thumb
			if err := json.Unmarshal(raw, &th); err == nil {
				return th, nil
			}
		}
	}

	body, contentType, err := t.download(ctx, url)
	if err != nil {
		return Thumb{}, err
	}

	th := t.convert(body, contentType, url)

	if t.cache != nil {
		if raw, err := json.Marshal(th); err == nil {
			if err := t.cache.Set(ctx, key, raw, t.ttl); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("Failed to cache thumbnail")
			}
		}
	}

	return th, nil
}

func (t *Thumbnailer) convert(body []byte, contentType, url string) Thumb {
	src, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Image not decodable, passing through")
		return Thumb{ContentType: contentType, Data: body}
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, Scale(src, t.size), &webp.Options{Lossless: false, Quality: t.quality}); err != nil {
		log.Error().Err(err).Str("url", url).Msg("Failed to encode webp")
		return Thumb{ContentType: contentType, Data: body}
	}

	log.Debug().
		Str("url", url).
		Str("format", format).
		Int("src_bytes", len(body)).
		Int("dst_bytes", buf.Len()).
		Msg("Thumbnail generated")
	return Thumb{ContentType: "image/webp", Data: buf.Bytes()}
}

// Scale fits src into a size x size transparent square keeping its aspect ratio.
func Scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return dst
	}

	dw, dh := size, size
	if w > h {
		dh = h * size / w
	} else if h > w {
		dw = w * size / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	ox, oy := (size-dw)/2, (size-dh)/2
	xdraw.CatmullRom.Scale(dst, image.Rect(ox, oy, ox+dw, oy+dh), src, b, draw.Over, nil)
	return dst
}

func (t *Thumbnailer) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	body, contentType, err := t.roundTrip(req)
	metrics.ObserveUpstream("item_image", float64(time.Since(start).Milliseconds()), err)
	return body, contentType, err
}

func (t *Thumbnailer) roundTrip(req *http.Request) ([]byte, string, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", req.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return body, contentType, nil
}
