// Package summary extracts the major events of a diary through an OpenAI-compatible
// chat completions endpoint.
package summary

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/settings"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const promptTemplate = "请分析以下日记内容，并提取1到3个“重大事件”或关键摘要。请直接以JSON数组格式返回字符串列表。内容：%s"

// maxResponseBytes bounds the completion body read from the endpoint.
const maxResponseBytes = 1 << 20

// Extractor turns diary content into major events.
type Extractor interface {
	ExtractMajorEvents(ctx context.Context, content string) []string
}

// Client calls the chat completions endpoint configured in SummarizerConfig.
type Client struct {
	cfg    config.SummarizerConfig
	client *http.Client
}

// NewClient builds a client; an empty base URL yields a client that always reports failure.
func NewClient(cfg config.SummarizerConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.BaseURL) != ""
}

// ExtractMajorEvents returns up to three events in extraction order. Short content
// yields no events; any failure yields the single failure sentinel.
func (c *Client) ExtractMajorEvents(ctx context.Context, content string) []string {
	if utf8.RuneCountInString(content) < settings.SummaryMinRunes {
		return []string{}
	}
	events, errExtract := c.extract(ctx, content)
	if errExtract != nil {
		log.WithError(errExtract).Warn("summary: extract major events failed")
		return []string{settings.SummaryFailure}
	}
	return events
}

func (c *Client) extract(ctx context.Context, content string) ([]string, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("summary: no endpoint configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, errBody := buildRequest(c.cfg.Model, content)
	if errBody != nil {
		return nil, errBody
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if errReq != nil {
		return nil, fmt.Errorf("summary: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, errDo := c.client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("summary: request failed: %w", errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("summary: close response body failed")
		}
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("summary: unexpected status %d", resp.StatusCode)
	}
	payload, errRead := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if errRead != nil {
		return nil, fmt.Errorf("summary: read response: %w", errRead)
	}
	return ParseCompletion(payload)
}

// buildRequest renders the chat completions request body.
func buildRequest(model, content string) ([]byte, error) {
	body := []byte(`{}`)
	var errSet error
	if body, errSet = sjson.SetBytes(body, "model", model); errSet != nil {
		return nil, fmt.Errorf("summary: build body: %w", errSet)
	}
	if body, errSet = sjson.SetBytes(body, "messages.0.role", "user"); errSet != nil {
		return nil, fmt.Errorf("summary: build body: %w", errSet)
	}
	if body, errSet = sjson.SetBytes(body, "messages.0.content", fmt.Sprintf(promptTemplate, content)); errSet != nil {
		return nil, fmt.Errorf("summary: build body: %w", errSet)
	}
	return body, nil
}

// ParseCompletion reads the JSON string array out of the first choice.
// An empty completion yields no events.
func ParseCompletion(payload []byte) ([]string, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("summary: invalid response json")
	}
	text := strings.TrimSpace(gjson.GetBytes(payload, "choices.0.message.content").String())
	if text == "" {
		return []string{}, nil
	}
	text = stripCodeFence(text)
	parsed := gjson.Parse(text)
	if !gjson.Valid(text) || !parsed.IsArray() {
		return nil, fmt.Errorf("summary: completion is not a json array")
	}
	events := make([]string, 0, settings.SummaryMaxEvents)
	for _, item := range parsed.Array() {
		event := strings.TrimSpace(item.String())
		if event == "" {
			continue
		}
		events = append(events, event)
		if len(events) == settings.SummaryMaxEvents {
			break
		}
	}
	return events, nil
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
