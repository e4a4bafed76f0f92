package models

import (
	"math"
	"time"
)

// AnalysisRequest is the body of POST /analyze
type AnalysisRequest struct {
	Image    string `json:"image"` // base64 image
	Filename string `json:"filename"`
	APIKey   string `json:"api_key"`
}

// URLAnalysisRequest is the body of POST /analyze/url
type URLAnalysisRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	APIKey   string `json:"api_key"`
}

// AnalysisResponse is returned on success only
type AnalysisResponse struct {
	Filename       string  `json:"filename"`
	Analysis       string  `json:"analysis"`
	ProcessingTime float64 `json:"processing_time"`
}

// ErrorResponse carries a human-readable failure
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RootResponse is the static health confirmation on GET /
type RootResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// RoundSeconds converts d to seconds rounded to two decimals, never negative.
func RoundSeconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(d.Seconds()*100) / 100
}
