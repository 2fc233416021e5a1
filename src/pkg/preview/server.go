/*
Package preview serves single rendered samples over HTTP so the effect of
a font, backdrop tier or augmentation setting can be checked before a full
run. Samples go through the same render, compose and augment path as the
generator and the same seed always returns the same image.
*/
package preview

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/background"
	"synth-ocr/src/pkg/compose"
	echomw "synth-ocr/src/pkg/echo-middleware"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/generator"
	"synth-ocr/src/pkg/render"
)

type Options struct {
	Server       echomw.Config
	Token        string
	Background   background.Config
	Augmentation augment.Config
}

type Server struct {
	echo      *echo.Echo
	opts      Options
	catalog   *fonts.Catalog
	renderer  *render.Renderer
	synth     *background.Synthesizer
	augmenter *augment.Pipeline
}

type fontInfo struct {
	Code   string      `json:"code"`
	Index  int         `json:"index"`
	File   string      `json:"file"`
	Family string      `json:"family"`
	Style  fonts.Style `json:"style"`
}

func New(opts Options, catalog *fonts.Catalog, renderer *render.Renderer) *Server {
	s := &Server{
		echo:      echo.New(),
		opts:      opts,
		catalog:   catalog,
		renderer:  renderer,
		synth:     background.New(opts.Background.Tiers),
		augmenter: augment.New(opts.Augmentation),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	limiter := echomw.NewLimiter(opts.Server.MiddlewareRateLimit, opts.Server.MiddlewareBurst)
	s.echo.Use(echomw.RouteAccessLoggerMiddleware)
	s.echo.Use(limiter.Middleware)

	s.echo.GET("/healthz", s.health)

	var guards []echo.MiddlewareFunc
	if opts.Server.RequireToken {
		guards = append(guards, echomw.RequireBearerToken(opts.Token))
	}
	api := s.echo.Group("/api", guards...)
	api.GET("/fonts", s.listFonts)
	api.GET("/preview", s.preview)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on the configured address until Shutdown.
func (s *Server) Start() error {
	address := s.opts.Server.ListenAddress()
	tl.Log(tl.Notice, palette.BlueBold, "Preview server listening on '%s'", address)
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	tl.Log(tl.Notice, palette.Yellow, "%s preview server", "Stopping")
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "fonts": s.catalog.Len()})
}

func (s *Server) listFonts(c echo.Context) error {
	list := make([]fontInfo, 0, s.catalog.Len())
	for _, f := range s.catalog.Fonts() {
		list = append(list, fontInfo{Code: f.Code(), Index: f.Index, File: f.File(), Family: f.Family, Style: f.Style})
	}
	return c.JSON(http.StatusOK, list)
}

/*
preview renders text with one font and returns it as PNG. The applied
backdrop layers and transforms are reported in response headers.
*/
func (s *Server) preview(c echo.Context) error {
	req, err := s.parse(c)
	if err != nil {
		return err
	}

	font, ok := s.catalog.Get(req.font)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown font "+strconv.Itoa(req.font))
	}

	bm, e := s.renderer.Render(req.text, font)
	if e != nil {
		tl.Log(tl.Warning, palette.Yellow, "Preview of '%s' with '%s' failed: %s: %s", req.text, font.File(), e.Msg, e.ErrStr)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "text cannot be rendered with "+font.File())
	}

	rng := generator.SampleRand(req.seed)
	img, effects := compose.New(s.synth, req.intensity).Compose(rng, bm.Image, req.background)
	var transforms []augment.Transform
	if req.augment {
		img, transforms = s.augmenter.Augment(rng, img)
	}

	var buf bytes.Buffer
	encodeErr := imaging.Encode(&buf, img, imaging.PNG)
	if encodeErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "encode preview")
	}

	applied := make([]string, len(transforms))
	for i, t := range transforms {
		applied[i] = string(t)
	}
	header := c.Response().Header()
	header.Set("X-Font", font.Code())
	header.Set("X-Font-Size", strconv.Itoa(bm.FontSize))
	header.Set("X-Effects", strings.Join(effects, ","))
	header.Set("X-Transforms", strings.Join(applied, ","))
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

type previewRequest struct {
	text       string
	font       int
	intensity  background.Intensity
	background bool
	augment    bool
	seed       uint64
}

func (s *Server) parse(c echo.Context) (req previewRequest, err error) {
	req = previewRequest{font: 1, intensity: s.opts.Background.Intensity, seed: 1}

	req.text = strings.TrimSpace(c.QueryParam("text"))
	if req.text == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	if limit := s.opts.Server.MaxTextLength; limit > 0 && utf8.RuneCountInString(req.text) > limit {
		return req, echo.NewHTTPError(http.StatusBadRequest, "text is longer than "+strconv.Itoa(limit)+" characters")
	}

	if v := c.QueryParam("font"); v != "" {
		req.font, err = strconv.Atoi(strings.TrimPrefix(v, "f"))
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "font must be an index like 1 or f01")
		}
	}
	if v := c.QueryParam("intensity"); v != "" {
		var ok bool
		req.intensity, ok = background.ParseIntensity(v)
		if !ok {
			return req, echo.NewHTTPError(http.StatusBadRequest, "intensity must be light, medium or heavy")
		}
	}
	if v := c.QueryParam("background"); v != "" {
		req.background, err = strconv.ParseBool(v)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "background must be true or false")
		}
	}
	if v := c.QueryParam("augment"); v != "" {
		req.augment, err = strconv.ParseBool(v)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "augment must be true or false")
		}
	}
	if v := c.QueryParam("seed"); v != "" {
		req.seed, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "seed must be a non-negative integer")
		}
	}
	return req, nil
}
