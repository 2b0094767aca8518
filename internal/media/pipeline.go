// Package media ingests listing photographs: it validates uploads, derives a
// full-size and a thumbnail raster from each one, and persists both through a
// Storage backend.
//
// File writes are not part of any database transaction. Callers that fail
// after a successful Ingest must call Discard; files orphaned by a crash
// between the two steps are accepted residue.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/observability"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
)

// Validation errors. Anything else returned by Ingest is a storage failure.
var (
	ErrNoImages         = errors.New("at least one image is required")
	ErrTooManyImages    = errors.New("too many images")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrCorruptImage     = errors.New("image could not be decoded")
)

// IsInvalid reports whether err was caused by the uploaded content rather
// than by the storage backend.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrNoImages) ||
		errors.Is(err, ErrTooManyImages) ||
		errors.Is(err, ErrUnsupportedImage) ||
		errors.Is(err, ErrCorruptImage)
}

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Upload is one received file.
type Upload struct {
	Filename string
	Data     []byte
}

// Stored is a persisted full/thumbnail pair.
type Stored struct {
	URL          string
	ThumbnailURL string
}

// Box is a width x height bounding box in pixels.
type Box struct{ W, H int }

// Options tunes the pipeline. Zero fields fall back to DefaultOptions.
type Options struct {
	MaxFiles    int
	Full        Box
	Thumbs      map[domain.Variant]Box
	Quality     int
	Timeout     time.Duration
	Concurrency int
}

// DefaultOptions returns the production sizes: full images fit in 1024x768,
// thumbnails are cropped to 200x200 for machines and 400x300 for properties.
func DefaultOptions() Options {
	return Options{
		MaxFiles: 10,
		Full:     Box{1024, 768},
		Thumbs: map[domain.Variant]Box{
			domain.VariantMachine:  {200, 200},
			domain.VariantProperty: {400, 300},
		},
		Quality:     80,
		Timeout:     30 * time.Second,
		Concurrency: 4,
	}
}

// Pipeline transcodes uploads and writes them to Storage.
type Pipeline struct {
	Storage Storage
	Opts    Options
}

// NewPipeline builds a Pipeline, filling unset options with defaults.
func NewPipeline(st Storage, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = def.MaxFiles
	}
	if opts.Full.W <= 0 || opts.Full.H <= 0 {
		opts.Full = def.Full
	}
	if opts.Thumbs == nil {
		opts.Thumbs = def.Thumbs
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	return &Pipeline{Storage: st, Opts: opts}
}

// MaxFiles is the per-listing image cap.
func (p *Pipeline) MaxFiles() int { return p.Opts.MaxFiles }

// Ingest validates and stores 1..MaxFiles uploads. The result has the same
// order as uploads. On any error every file written by this call is removed
// before returning.
func (p *Pipeline) Ingest(ctx context.Context, variant domain.Variant, uploads []Upload) ([]Stored, error) {
	if len(uploads) == 0 {
		return nil, ErrNoImages
	}
	if len(uploads) > p.Opts.MaxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyImages, len(uploads), p.Opts.MaxFiles)
	}
	thumb, ok := p.Opts.Thumbs[variant]
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.Opts.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		written []string
	)
	save := func(ctx context.Context, name string, data []byte) (string, error) {
		url, err := p.Storage.Save(ctx, name, data, "image/jpeg")
		if err != nil {
			return "", err
		}
		mu.Lock()
		written = append(written, url)
		mu.Unlock()
		return url, nil
	}

	out := make([]Stored, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Opts.Concurrency)
	for i, up := range uploads {
		i, up := i, up
		g.Go(func() error {
			full, small, err := p.transcode(up, thumb)
			if err != nil {
				return fmt.Errorf("%s: %w", up.Filename, err)
			}
			base := variant.FilePrefix() + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			if out[i].URL, err = save(gctx, base+".jpg", full); err != nil {
				return err
			}
			if out[i].ThumbnailURL, err = save(gctx, base+"_thumb.jpg", small); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.remove(context.WithoutCancel(ctx), written...)
		return nil, err
	}

	observability.ImagesIngested.WithLabelValues(string(variant)).Add(float64(len(out)))
	observability.ImageIngestSeconds.Observe(time.Since(start).Seconds())
	return out, nil
}

// transcode returns the encoded full-size and thumbnail JPEGs for one upload.
func (p *Pipeline) transcode(up Upload, thumb Box) ([]byte, []byte, error) {
	mt := mimetype.Detect(up.Data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}
	img, err := imaging.Decode(bytes.NewReader(up.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	full, err := p.encode(imaging.Fit(img, p.Opts.Full.W, p.Opts.Full.H, imaging.Lanczos))
	if err != nil {
		return nil, nil, err
	}
	small, err := p.encode(imaging.Fill(img, thumb.W, thumb.H, imaging.Center, imaging.Lanczos))
	if err != nil {
		return nil, nil, err
	}
	return full, small, nil
}

func (p *Pipeline) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.Opts.Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Discard removes every file of the given pairs. Failures are logged.
func (p *Pipeline) Discard(ctx context.Context, stored []Stored) {
	urls := make([]string, 0, 2*len(stored))
	for _, s := range stored {
		urls = append(urls, s.URL, s.ThumbnailURL)
	}
	p.remove(ctx, urls...)
}

// Remove deletes the files behind a retired image. Failures are logged and
// never returned: the database row is authoritative.
func (p *Pipeline) Remove(ctx context.Context, url, thumbnailURL string) {
	p.remove(ctx, url, thumbnailURL)
}

func (p *Pipeline) remove(ctx context.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := p.Storage.Remove(ctx, u); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Str("url", u).Msg("image file removal failed")
		}
	}
}
