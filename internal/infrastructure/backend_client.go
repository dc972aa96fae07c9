package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

const (
	infoPath           = "/api/info"
	singleTransferPath = "/api/downloads"
	memberTransferPath = "/api/download"
	prepareTransfer    = "/api/prepare-download"
	batchTransferPath  = "/api/multi-downloads"
	thumbnailPath      = "/api/proxy-thumbnail"

	maxMetadataBytes  = 16 << 20
	maxErrorBodyBytes = 4 << 10
	maxThumbnailBytes = 8 << 20
)

// BackendClient talks to the remote media-fetch service over HTTP
type BackendClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewBackendClient creates a new backend client. A nil httpClient uses a client without a timeout,
// so a stalled transfer blocks until the transport itself errors.
func NewBackendClient(config *domain.BackendConfig, httpClient *http.Client, logger *zap.Logger) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &BackendClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type wireFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	ACodec     string   `json:"acodec"`
	VCodec     string   `json:"vcodec"`
	Filesize   *float64 `json:"filesize"`
	FormatNote string   `json:"format_note"`
	Resolution string   `json:"resolution"`
}

type wireVideo struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Formats   []wireFormat `json:"formats"`
}

// infoResponse is the tagged metadata payload; IsPlaylist selects which half is populated
type infoResponse struct {
	IsPlaylist bool `json:"isPlaylist"`

	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Formats   []wireFormat `json:"formats"`

	PlaylistTitle string      `json:"playlistTitle"`
	Videos        []wireVideo `json:"videos"`

	Error string `json:"error"`
}

type transferBody struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
}

type batchVideo struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Title   string `json:"title"`
}

type batchBody struct {
	Videos     []batchVideo `json:"videos"`
	TransferID string       `json:"transferId,omitempty"`
}

// FetchMetadata retrieves the descriptor of a single item or collection
func (c *BackendClient) FetchMetadata(ctx context.Context, locator string) (*domain.Resource, error) {
	resp, err := c.postJSON(ctx, infoPath, map[string]string{"url": locator})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("read metadata response: %w", err)
	}

	var payload infoResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}
	if payload.Error != "" {
		return nil, errors.New(payload.Error)
	}

	resource := mapResource(locator, &payload)
	if err := resource.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata response: %w", err)
	}

	c.logger.Debug("Fetched metadata",
		zap.String("url", locator),
		zap.String("kind", string(resource.Kind)),
		zap.Int("formats", len(resource.Formats)),
		zap.Int("members", len(resource.Members)))

	return resource, nil
}

// RequestHandle pre-registers a transfer and returns its id and suggested filename
func (c *BackendClient) RequestHandle(ctx context.Context, req domain.TransferRequest) (*domain.TransferHandle, error) {
	resp, err := c.postJSON(ctx, prepareTransfer, transferBody{URL: req.Locator, Quality: req.FormatID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var handle domain.TransferHandle
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&handle); err != nil {
		return nil, fmt.Errorf("decode transfer handle: %w", err)
	}
	if handle.TransferID == "" {
		return nil, fmt.Errorf("transfer handle without id")
	}
	return &handle, nil
}

// OpenTransfer starts the byte stream of a single item or collection member
func (c *BackendClient) OpenTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferStream, error) {
	path := singleTransferPath
	if req.Member {
		path = memberTransferPath
	}

	params := url.Values{}
	params.Set("url", req.Locator)
	if req.FormatID != "" {
		params.Set("quality", req.FormatID)
	}
	if req.TransferID != "" {
		params.Set("transferId", req.TransferID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("prepare transfer request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transfer request: %w", err)
	}
	return openStream(resp)
}

// OpenBatch starts the byte stream of an archive over the given members
func (c *BackendClient) OpenBatch(ctx context.Context, req domain.BatchRequest) (*domain.TransferStream, error) {
	body := batchBody{
		Videos:     make([]batchVideo, 0, len(req.Members)),
		TransferID: req.TransferID,
	}
	for _, m := range req.Members {
		body.Videos = append(body.Videos, batchVideo{URL: m.Locator, Quality: m.FormatID, Title: m.Title})
	}

	resp, err := c.postJSON(ctx, batchTransferPath, body)
	if err != nil {
		return nil, err
	}
	return openStream(resp)
}

// FetchThumbnail retrieves a third-party thumbnail through the backend origin
func (c *BackendClient) FetchThumbnail(ctx context.Context, thumbnail string) ([]byte, string, error) {
	target := c.baseURL + thumbnailPath + "?" + url.Values{"url": {thumbnail}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("prepare thumbnail request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("thumbnail request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read thumbnail: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (c *BackendClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("prepare request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into a StatusError carrying a short body excerpt
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &domain.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func openStream(resp *http.Response) (*domain.TransferStream, error) {
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &domain.TransferStream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		FilenameHint:  filenameHint(resp.Header.Get("Content-Disposition")),
	}, nil
}

// filenameHint extracts the filename parameter of a Content-Disposition header
func filenameHint(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func mapResource(locator string, payload *infoResponse) *domain.Resource {
	if !payload.IsPlaylist {
		return domain.NewSingleResource(locator, payload.Title, payload.Thumbnail, mapFormats(payload.Formats))
	}

	members := make([]domain.CollectionMember, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		id := v.ID
		if id == "" {
			id = v.URL
		}
		members = append(members, domain.CollectionMember{
			ID:        id,
			Locator:   v.URL,
			Title:     v.Title,
			Thumbnail: v.Thumbnail,
			Formats:   mapFormats(v.Formats),
		})
	}
	return domain.NewCollectionResource(locator, payload.PlaylistTitle, members)
}

func mapFormats(in []wireFormat) []domain.FormatVariant {
	formats := make([]domain.FormatVariant, 0, len(in))
	for _, f := range in {
		var size int64
		if f.Filesize != nil && *f.Filesize > 0 {
			size = int64(*f.Filesize)
		}
		formats = append(formats, domain.FormatVariant{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			AudioCodec: f.ACodec,
			VideoCodec: f.VCodec,
			Filesize:   size,
			Resolution: f.Resolution,
			Note:       f.FormatNote,
		})
	}
	return formats
}
