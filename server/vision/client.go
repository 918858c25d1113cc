// Package vision asks a chat-completion vision model whether a camera frame
// shows a threat.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/server/metrics"
	"github.com/Daskott/guardian/server/models"
)

const (
	DEFAULT_MODEL   = "google/gemini-2.5-flash"
	DEFAULT_TIMEOUT = 30 * time.Second

	MAX_REPLY_BYTES = 1 << 20
)

const systemPrompt = "You are an AI safety monitor analyzing video frames for weapons, threats, and dangerous situations. " +
	"Analyze the image carefully and respond ONLY with a JSON object containing: status ('safe', 'warning', or 'danger'), " +
	"confidence (0-100), and description (brief explanation). Be VERY sensitive to detecting: knives, guns, weapons, " +
	"threatening gestures, physical violence, or any dangerous objects. Even if partially visible, flag as 'danger' or " +
	"'warning'. Only return the JSON object, nothing else."

const framePrompt = "Analyze this video frame for ANY signs of: WEAPONS (knives, guns, blades, sharp objects), threats, " +
	"aggressive behavior, or dangerous situations. Look VERY CAREFULLY for: knives, guns, weapons of any kind, threatening " +
	"hand gestures, physical aggression, distressed individuals, or intimidating behavior. If you see ANY weapon or " +
	"potentially dangerous object, mark as 'danger' with high confidence."

var (
	logg = logger.NewLogger()

	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

type Config struct {
	URL        string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Frame struct {
	// Data is the frame as a data URL, e.g. data:image/jpeg;base64,...
	Data       string  `json:"frame_data" validate:"required"`
	CameraID   *string `json:"camera_id"`
	CameraName *string `json:"camera_name"`
}

type Result struct {
	Status      string    `json:"status"`
	Confidence  int       `json:"confidence"`
	Description string    `json:"description"`
	CameraID    *string   `json:"camera_id"`
	CameraName  *string   `json:"camera_name"`
	Timestamp   time.Time `json:"timestamp"`

	// Degraded is set when no real analysis happened and the safe status is
	// a placeholder.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type Client struct {
	config  Config
	http    *http.Client
	metrics *metrics.Metrics
}

func NewClient(config Config, m *metrics.Metrics) *Client {
	if config.Model == "" {
		config.Model = DEFAULT_MODEL
	}
	if config.Timeout <= 0 {
		config.Timeout = DEFAULT_TIMEOUT
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{config: config, http: httpClient, metrics: m}
}

// Analyze never fails: provider errors, rate limits and unreadable replies
// produce a degraded safe result that carries the reason.
func (client *Client) Analyze(ctx context.Context, frame Frame) Result {
	result, reason := client.analyze(ctx, frame)
	if reason != "" {
		logg.Warnf("vision analysis degraded: %v", reason)
		client.metrics.Analysis(metrics.ANALYSIS_DEGRADED)
		result = Result{
			Status:      models.SAFE_STATUS,
			Confidence:  0,
			Description: "Analysis unavailable",
			Degraded:    true,
			Reason:      reason,
		}
	} else {
		client.metrics.Analysis(metrics.ANALYSIS_OK)
	}

	result.CameraID = frame.CameraID
	result.CameraName = frame.CameraName
	result.Timestamp = time.Now().UTC()

	return result
}

func (client *Client) analyze(ctx context.Context, frame Frame) (Result, string) {
	if client.config.URL == "" || client.config.APIKey == "" {
		return Result{}, "vision endpoint is not configured"
	}

	body, err := json.Marshal(client.completionRequest(frame.Data))
	if err != nil {
		return Result{}, fmt.Sprintf("encoding request: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, client.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.config.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Sprintf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+client.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.http.Do(req)
	if err != nil {
		return Result{}, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, "rate limited"
	case resp.StatusCode == http.StatusPaymentRequired:
		return Result{}, "payment required"
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, fmt.Sprintf("unexpected status %v", resp.StatusCode)
	}

	completion := completionResponse{}
	if err = json.NewDecoder(io.LimitReader(resp.Body, MAX_REPLY_BYTES)).Decode(&completion); err != nil {
		return Result{}, fmt.Sprintf("decoding response: %v", err)
	}

	if len(completion.Choices) == 0 {
		return Result{}, "response has no choices"
	}

	return parseReply(completion.Choices[0].Message.Content)
}

// parseReply reads the first JSON object embedded in the model's reply.
func parseReply(reply string) (Result, string) {
	match := jsonObject.FindString(reply)
	if match == "" {
		return Result{}, "reply has no JSON object"
	}

	verdict := struct {
		Status      string  `json:"status"`
		Confidence  float64 `json:"confidence"`
		Description string  `json:"description"`
	}{}
	if err := json.Unmarshal([]byte(match), &verdict); err != nil {
		return Result{}, fmt.Sprintf("reply is not valid JSON: %v", err)
	}

	status := strings.ToLower(strings.TrimSpace(verdict.Status))
	if !models.AlertStatusNameMap[status] {
		return Result{}, fmt.Sprintf("reply has unknown status %q", verdict.Status)
	}

	return Result{
		Status:      status,
		Confidence:  models.ClampConfidence(int(verdict.Confidence)),
		Description: verdict.Description,
	}, ""
}

// ---------------------------------------------------------------------------------//
// Wire types
// --------------------------------------------------------------------------------//

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (client *Client) completionRequest(frameData string) completionRequest {
	return completionRequest{
		Model: client.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: framePrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: frameData}},
			}},
		},
	}
}
