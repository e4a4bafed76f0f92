package service

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "go-medical-imaging/internal/errors"
	"go-medical-imaging/internal/factory"
	"go-medical-imaging/internal/observer"
	"go-medical-imaging/internal/payload"
	"go-medical-imaging/internal/vision"
	"go-medical-imaging/pkg/validation"
)

// Sources reported on analysis events
const (
	SourceBase64 = "base64"
	SourceUpload = "upload"
	SourceURL    = "url"
)

// ErrAPIKeyRequired is returned before any network call when no key was given
var ErrAPIKeyRequired = apperrors.NewValidationError("API key is required", nil)

// AnalysisService relays one image to the remote model per call
type AnalysisService interface {
	// AnalyzeBase64 sends an already encoded image untouched
	AnalyzeBase64(ctx context.Context, filename, encoded, apiKey string) (string, error)
	// AnalyzeBytes encodes raw image bytes and sends them
	AnalyzeBytes(ctx context.Context, filename string, image []byte, apiKey string) (string, error)
	// AnalyzeURL fetches the image from a remote source first
	AnalyzeURL(ctx context.Context, filename, location, apiKey string) (string, error)
}

// Options wires an AnalysisService
type Options struct {
	Builder    *payload.Builder
	Prompts    payload.Prompts
	Dispatcher vision.Dispatcher
	Events     observer.Subject
	Sources    factory.StorageFactory
	Validator  *validation.URLValidator
}

type analysisService struct {
	builder    *payload.Builder
	prompts    payload.Prompts
	dispatcher vision.Dispatcher
	events     observer.Subject
	sources    factory.StorageFactory
	validator  *validation.URLValidator
}

// NewAnalysisService creates a service bound to one prompt pair
func NewAnalysisService(opts Options) AnalysisService {
	if opts.Builder == nil {
		opts.Builder = payload.NewBuilder("")
	}
	if opts.Events == nil {
		opts.Events = observer.NewEventPublisher()
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewURLValidator()
	}
	return &analysisService{
		builder:    opts.Builder,
		prompts:    opts.Prompts,
		dispatcher: opts.Dispatcher,
		events:     opts.Events,
		sources:    opts.Sources,
		validator:  opts.Validator,
	}
}

func (s *analysisService) AnalyzeBase64(ctx context.Context, filename, encoded, apiKey string) (string, error) {
	return s.run(ctx, filename, SourceBase64, apiKey, func() (openai.ChatCompletionRequest, error) {
		return s.builder.FromBase64(encoded, s.prompts)
	})
}

func (s *analysisService) AnalyzeBytes(ctx context.Context, filename string, image []byte, apiKey string) (string, error) {
	return s.run(ctx, filename, SourceUpload, apiKey, func() (openai.ChatCompletionRequest, error) {
		return s.builder.FromBytes(image, s.prompts)
	})
}

func (s *analysisService) AnalyzeURL(ctx context.Context, filename, location, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrAPIKeyRequired
	}
	if err := s.validator.ValidateImageURL(location); err != nil {
		return "", err
	}

	image, err := s.fetch(ctx, filename, location)
	if err != nil {
		return "", err
	}

	return s.run(ctx, filename, SourceURL, apiKey, func() (openai.ChatCompletionRequest, error) {
		return s.builder.FromBytes(image, s.prompts)
	})
}

func (s *analysisService) fetch(ctx context.Context, filename, location string) ([]byte, error) {
	if s.sources == nil {
		return nil, apperrors.NewInternalError("no image sources configured", nil)
	}

	source, err := s.sources.ForLocation(location)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported image location", err)
	}

	start := time.Now()
	image, err := source.FetchImage(ctx, location)
	if err != nil {
		// The cause stays in the logs; callers only learn that the fetch failed.
		fetchErr := apperrors.NewNetworkError("failed to fetch image", nil)
		if errors.Is(err, context.DeadlineExceeded) {
			fetchErr = apperrors.NewTimeoutError("image fetch timeout", nil)
		}
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			Filename:       filename,
			Source:         SourceURL,
			ProcessingTime: time.Since(start),
			ErrorKind:      string(fetchErr.Type),
			ErrorMessage:   err.Error(),
		})
		return nil, fetchErr
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		Filename:       filename,
		Source:         SourceURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(image)},
	})
	return image, nil
}

// run validates the key, builds the payload and dispatches it, reporting
// every outcome to the observers.
func (s *analysisService) run(ctx context.Context, filename, source, apiKey string, build func() (openai.ChatCompletionRequest, error)) (string, error) {
	if apiKey == "" {
		return "", ErrAPIKeyRequired
	}

	start := time.Now()
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Filename:  filename,
		Source:    source,
	})

	text, err := s.dispatch(ctx, apiKey, build)
	elapsed := time.Since(start)
	if err != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Filename:       filename,
			Source:         source,
			ProcessingTime: elapsed,
			ErrorKind:      string(apperrors.KindOf(err)),
			ErrorMessage:   err.Error(),
		})
		return "", err
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Filename:       filename,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
	})
	return text, nil
}

func (s *analysisService) dispatch(ctx context.Context, apiKey string, build func() (openai.ChatCompletionRequest, error)) (string, error) {
	req, err := build()
	if err != nil {
		if errors.Is(err, payload.ErrEmptyImage) {
			return "", apperrors.NewProcessingError("image data is empty", err)
		}
		return "", apperrors.NewInternalError("failed to build request", err)
	}
	if s.dispatcher == nil {
		return "", apperrors.NewInternalError("no dispatcher configured", nil)
	}
	return s.dispatcher.Complete(ctx, apiKey, req)
}
