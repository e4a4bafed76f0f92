package ui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	apperrors "go-medical-imaging/internal/errors"
	"go-medical-imaging/internal/logger"
	"go-medical-imaging/internal/service"
	"go-medical-imaging/internal/transport"
	"go-medical-imaging/pkg/models"
)

const (
	EndPointIndex   = "/"
	EndPointHealth  = "/health"
	EndPointAnalyze = "/analyze"
	EndPointMetrics = "/metrics"

	pageTitle = "Medical Imaging Diagnosis Agent"

	formFieldImage  = "image"
	formFieldAPIKey = "api_key"

	msgMissingKey    = "Please enter your OpenAI API key."
	msgMissingImage  = "Please upload a medical image."
	msgUnreadable    = "The upload could not be read."
	msgRemoteFailure = "Failed to get response from the analysis API"
	msgUnexpected    = "Something went wrong while preparing the image."
)

//go:embed templates/*.html
var templateFS embed.FS

// HandlerConfig holds the HTTP-level knobs of the UI
type HandlerConfig struct {
	MaxUploadSize  int64
	MaxImagePixels int64
	RequestTimeout time.Duration
	TrustedProxies []string
	Metrics        prometheus.Gatherer
}

// NewHandler builds the browser-facing router
func NewHandler(analysis service.AnalysisService, cfg HandlerConfig) http.Handler {
	r := gin.New()
	transport.TrustProxies(r, cfg.TrustedProxies)
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	r.Use(
		gin.Recovery(),
		transport.RequestID(),
		transport.RequestLogger(),
		transport.RequestSizeLimiter(cfg.MaxUploadSize),
	)

	r.GET(EndPointIndex, index)
	r.GET(EndPointHealth, health)
	if cfg.Metrics != nil {
		r.GET(EndPointMetrics, gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}
	r.POST(EndPointAnalyze, analyze(analysis, cfg))

	return r
}

func index(c *gin.Context) {
	render(c, newPage())
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: transport.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func analyze(analysis service.AnalysisService, cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := newPage()

		header, err := c.FormFile(formFieldImage)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				render(c, page.withWarning(msgMissingImage))
				return
			}
			logger.WithError(err).Warn("Failed to read upload")
			render(c, page.withWarning(msgUnreadable))
			return
		}

		file, err := header.Open()
		if err != nil {
			logger.WithError(err).Warn("Failed to open upload")
			render(c, page.withWarning(msgUnreadable))
			return
		}
		defer file.Close()

		page.Filename = header.Filename
		png, err := normalizeUpload(header.Filename, file, cfg.MaxImagePixels)
		if err != nil {
			logger.WithError(err).WithField("filename", header.Filename).Warn("Rejected upload")
			if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				render(c, page.withWarning(apperrors.MessageOf(err)))
				return
			}
			render(c, page.withFailure(msgUnexpected))
			return
		}
		page.ImageURI = previewURI(png)

		apiKey := c.PostForm(formFieldAPIKey)
		if apiKey == "" {
			render(c, page.withWarning(msgMissingKey))
			return
		}

		ctx := c.Request.Context()
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}

		logger.WithFields(logrus.Fields{
			"filename": header.Filename,
			"state":    Analyzing.String(),
		}).Debug("Dispatching uploaded image")
		text, err := analysis.AnalyzeBytes(ctx, header.Filename, png, apiKey)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"filename":   header.Filename,
				"error_kind": apperrors.KindOf(err),
			}).Error("Error during analysis")
			render(c, page.withFailure(msgRemoteFailure))
			return
		}

		render(c, page.withResult(text))
	}
}

func render(c *gin.Context, page Page) {
	c.HTML(http.StatusOK, "index.html", page)
}
