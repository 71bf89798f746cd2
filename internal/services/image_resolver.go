package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"uxreview/internal/config"
	"uxreview/internal/llm/client"
	"uxreview/internal/logging"
	"uxreview/internal/models"
	"uxreview/internal/utils"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageResolver loads the image payload behind each screen.
type ImageResolver interface {
	// Resolve fetches every screen concurrently. Screens that fail are logged
	// and reported in excluded; images come back in screen order.
	Resolve(ctx context.Context, screens []models.Screen) (images []client.Image, excluded []string, err error)
}

type ImageResolverConfig struct {
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	MaxFetches   int
	MaxBytes     int64
	Logger       *zap.Logger
}

type imageResolver struct {
	http     *http.Client
	timeout  time.Duration
	limit    int
	maxBytes int64
	logger   *zap.Logger
}

func NewImageResolver(cfg ImageResolverConfig) ImageResolver {
	r := &imageResolver{
		http:     cfg.HTTPClient,
		timeout:  cfg.FetchTimeout,
		limit:    cfg.MaxFetches,
		maxBytes: cfg.MaxBytes,
		logger:   logging.OrNop(cfg.Logger),
	}
	if r.http == nil {
		r.http = http.DefaultClient
	}
	if r.limit <= 0 {
		r.limit = config.Default().MaxFetches
	}
	if r.maxBytes <= 0 {
		r.maxBytes = config.MaxImageBytes
	}
	return r
}

func (r *imageResolver) Resolve(ctx context.Context, screens []models.Screen) ([]client.Image, []string, error) {
	ordered := append([]models.Screen{}, screens...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	results := make([]*client.Image, len(ordered))
	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, screen := range ordered {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := r.resolveOne(ctx, screen)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn("screen image could not be resolved",
					zap.String("screen_id", screen.ID),
					zap.String("screen_name", screen.Name),
					zap.Error(err))
				return nil
			}
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	images := make([]client.Image, 0, len(ordered))
	excluded := make([]string, 0)
	for i, img := range results {
		if img == nil {
			excluded = append(excluded, ordered[i].ID)
			continue
		}
		images = append(images, *img)
	}
	return images, excluded, nil
}

func (r *imageResolver) resolveOne(ctx context.Context, screen models.Screen) (*client.Image, error) {
	src := strings.TrimSpace(screen.PreviewURL)
	if src == "" {
		return nil, errors.New("screen has no image source")
	}

	var (
		data     []byte
		declared string
		err      error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, declared, err = decodeDataURL(src, r.maxBytes)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, declared, err = r.fetch(ctx, src)
	default:
		data, err = r.readLocal(src)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}

	mime, err := imageMIME(data, declared)
	if err != nil {
		return nil, err
	}
	return &client.Image{ScreenID: screen.ID, Data: data, MIMEType: mime}, nil
}

func (r *imageResolver) fetch(ctx context.Context, src string) ([]byte, string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", src, resp.StatusCode)
	}
	data, err := utils.ReadAllLimited(resp.Body, r.maxBytes)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", src, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (r *imageResolver) readLocal(src string) ([]byte, error) {
	path := src
	if strings.HasPrefix(src, "file://") {
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src, err)
		}
		path = u.Path
	}
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("file %s does not exist", path)
	}
	return utils.ReadFileLimited(path, r.maxBytes)
}

// decodeDataURL accepts data:[<mime>][;base64],<payload>.
func decodeDataURL(src string, limit int64) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data URL")
	}
	params := strings.Split(meta, ";")
	mime := strings.TrimSpace(params[0])
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data URL: %w", err)
		}
		if int64(len(unescaped)) > limit {
			return nil, "", fmt.Errorf("content exceeds %d bytes", limit)
		}
		return []byte(unescaped), mime, nil
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return nil, "", fmt.Errorf("content exceeds %d bytes", limit)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("content exceeds %d bytes", limit)
	}
	return data, mime, nil
}

// imageMIME trusts a declared image/* type and otherwise sniffs the payload.
func imageMIME(data []byte, declared string) (string, error) {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if strings.HasPrefix(declared, "image/") {
		return declared, nil
	}
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return "", errors.New("content is not a supported image")
	}
	return kind.MIME.Value, nil
}
