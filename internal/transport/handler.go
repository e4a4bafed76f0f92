package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	apperrors "go-medical-imaging/internal/errors"
	"go-medical-imaging/internal/logger"
	"go-medical-imaging/internal/service"
	"go-medical-imaging/pkg/models"
)

const (
	EndPointRoot       = "/"
	EndPointHealth     = "/health"
	EndPointMetrics    = "/metrics"
	EndPointAnalyze    = "/analyze"
	EndPointAnalyzeURL = "/analyze/url"

	rootMessage = "Medical Imaging API is Running"
	Version     = "1.0.0"
)

// HandlerConfig holds the HTTP-level knobs of the API service
type HandlerConfig struct {
	MaxRequestBodySize int64
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string
	Metrics            prometheus.Gatherer
}

// NewHandler builds the API service router
func NewHandler(analysis service.AnalysisService, cfg HandlerConfig) http.Handler {
	r := gin.New()
	TrustProxies(r, cfg.TrustedProxies)

	r.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(),
		CORSAllowAll(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{EndPointMetrics})),
		RequestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET(EndPointRoot, root)
	r.GET(EndPointHealth, healthCheck)
	if cfg.Metrics != nil {
		r.GET(EndPointMetrics, gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	analyze := r.Group("/")
	if cfg.RateLimitPerMinute > 0 {
		analyze.Use(RateLimit(cfg.RateLimitPerMinute))
	}
	analyze.POST(EndPointAnalyze, analyzeImage(analysis, cfg.RequestTimeout))
	analyze.POST(EndPointAnalyzeURL, analyzeImageURL(analysis, cfg.RequestTimeout))

	return r
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, models.RootResponse{Message: rootMessage})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func analyzeImage(a service.AnalysisService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var req models.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		// Validate API key before anything touches the network
		if req.APIKey == "" {
			respondError(c, http.StatusBadRequest, "API key is required", service.ErrAPIKeyRequired)
			return
		}

		ctx, cancel := withOptionalTimeout(c.Request.Context(), timeout)
		defer cancel()

		output, err := a.AnalyzeBase64(ctx, req.Filename, req.Image, req.APIKey)
		if err != nil {
			analysisFailed(c, req.Filename, err)
			return
		}

		respondAnalysis(c, req.Filename, output, startTime)
	}
}

func analyzeImageURL(a service.AnalysisService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var req models.URLAnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		if req.APIKey == "" {
			respondError(c, http.StatusBadRequest, "API key is required", service.ErrAPIKeyRequired)
			return
		}

		ctx, cancel := withOptionalTimeout(c.Request.Context(), timeout)
		defer cancel()

		output, err := a.AnalyzeURL(ctx, req.Filename, req.URL, req.APIKey)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				respondError(c, http.StatusBadRequest, apperrors.MessageOf(err), err)
				return
			}
			analysisFailed(c, req.Filename, err)
			return
		}

		respondAnalysis(c, req.Filename, output, startTime)
	}
}

// analysisFailed flattens every downstream failure to 500 so callers see one
// contract regardless of the error kind.
func analysisFailed(c *gin.Context, filename string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"filename":   filename,
		"error_kind": apperrors.KindOf(err),
		"request_id": c.GetString(requestIDKey),
	}).Error("Error during analysis")

	respondError(c, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err), err)
}

func badBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}
	respondError(c, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %v", err), err)
}

func respondAnalysis(c *gin.Context, filename, output string, startTime time.Time) {
	duration := time.Since(startTime)
	logger.WithFields(logrus.Fields{
		"filename":           filename,
		"processing_time_ms": duration.Milliseconds(),
		"request_id":         c.GetString(requestIDKey),
	}).Info(fmt.Sprintf("Analysis completed for %s", filename))

	c.JSON(http.StatusOK, models.AnalysisResponse{
		Filename:       filename,
		Analysis:       output,
		ProcessingTime: models.RoundSeconds(duration),
	})
}

func respondError(c *gin.Context, code int, detail string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
		"request_id":  c.GetString(requestIDKey),
	}).Warn("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{Detail: detail})
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
