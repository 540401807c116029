package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kaito/tubegrab/internal/domain"
)

// ProcessorAPI is the contract with the external processing service that
// performs the actual media extraction and transcoding.
type ProcessorAPI interface {
	ExtractMetadata(ctx context.Context, url string) (*domain.VideoMetadata, error)
	Convert(ctx context.Context, url string, format domain.ConversionFormat, quality string) (*ConvertResult, error)
}

// ConvertResult is the successful outcome of a remote conversion. FilePath
// points at the produced file on the volume shared with the processor.
type ConvertResult struct {
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size,omitempty"`
}

// ProcessorClient talks HTTP to the processing service. Any non-2xx
// response or success:false body is a hard failure for the job; retries
// are not attempted at this layer.
type ProcessorClient struct {
	client  *resty.Client
	baseURL string
}

// ProcessorConfig holds configuration for the processor client.
type ProcessorConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewProcessorClient creates a new processing-service client.
func NewProcessorClient(cfg *ProcessorConfig) *ProcessorClient {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	// Bounded timeout: a hung remote call must eventually release the job
	// to the timeout sweep
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client.SetTimeout(timeout)

	return &ProcessorClient{
		client:  client,
		baseURL: cfg.BaseURL,
	}
}

type extractMetadataRequest struct {
	URL string `json:"url"`
}

type extractMetadataResponse struct {
	Success  bool                  `json:"success"`
	Metadata *domain.VideoMetadata `json:"metadata,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ExtractMetadata calls the remote metadata-extraction endpoint.
func (p *ProcessorClient) ExtractMetadata(ctx context.Context, url string) (*domain.VideoMetadata, error) {
	var resp extractMetadataResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(extractMetadataRequest{URL: url}).
		SetResult(&resp).
		ForceContentType("application/json").
		Post(p.baseURL + "/extract-metadata")

	if err != nil {
		return nil, fmt.Errorf("failed to call metadata extraction: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("metadata extraction returned HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if !resp.Success {
		return nil, fmt.Errorf("metadata extraction failed: %s", resp.Error)
	}
	if resp.Metadata == nil {
		return nil, fmt.Errorf("metadata extraction returned no metadata")
	}

	return resp.Metadata, nil
}

type convertRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

type convertResponse struct {
	Success bool           `json:"success"`
	Result  *ConvertResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Convert calls the remote conversion endpoint.
func (p *ProcessorClient) Convert(ctx context.Context, url string, format domain.ConversionFormat, quality string) (*ConvertResult, error) {
	var resp convertResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(convertRequest{URL: url, Format: string(format), Quality: quality}).
		SetResult(&resp).
		ForceContentType("application/json").
		Post(p.baseURL + "/convert")

	if err != nil {
		return nil, fmt.Errorf("failed to call conversion: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("conversion returned HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if !resp.Success {
		return nil, fmt.Errorf("conversion failed: %s", resp.Error)
	}
	if resp.Result == nil || resp.Result.FilePath == "" {
		return nil, fmt.Errorf("conversion returned no result file")
	}

	return resp.Result, nil
}
