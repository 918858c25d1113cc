package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/Daskott/guardian/server/metrics"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testURL = "https://vision.example.com/v1/chat/completions"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func completion(content string) string {
	encoded, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]string{"content": content}},
		},
	})
	return string(encoded)
}

func newTestClient(m *metrics.Metrics) *Client {
	return NewClient(Config{URL: testURL, APIKey: "test-key"}, m)
}

func TestAnalyze(t *testing.T) {
	setupHTTPMock(t)

	camera := "cam-1"
	var captured completionRequest

	httpmock.RegisterResponder(http.MethodPost, testURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))

		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		return httpmock.NewStringResponse(http.StatusOK, completion(
			"Sure! ```json\n{\"status\": \"DANGER\", \"confidence\": 92.5, \"description\": \"knife visible\"}\n```",
		)), nil
	})

	m := metrics.New()
	result := newTestClient(m).Analyze(context.Background(), Frame{Data: "data:image/jpeg;base64,AAAA", CameraID: &camera})

	assert.False(t, result.Degraded)
	assert.Equal(t, "danger", result.Status)
	assert.Equal(t, 92, result.Confidence)
	assert.Equal(t, "knife visible", result.Description)
	assert.Equal(t, &camera, result.CameraID)
	assert.False(t, result.Timestamp.IsZero())

	assert.Equal(t, DEFAULT_MODEL, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Analyses.WithLabelValues(metrics.ANALYSIS_OK)))
}

func TestAnalyzeDegrades(t *testing.T) {
	cases := []struct {
		description string
		responder   httpmock.Responder
		reason      string
	}{
		{"rate limited", httpmock.NewStringResponder(http.StatusTooManyRequests, `{}`), "rate limited"},
		{"payment required", httpmock.NewStringResponder(http.StatusPaymentRequired, `{}`), "payment required"},
		{"server error", httpmock.NewStringResponder(http.StatusBadGateway, `oops`), "unexpected status 502"},
		{"transport error", httpmock.NewErrorResponder(errors.New("connection reset")), ""},
		{"no choices", httpmock.NewStringResponder(http.StatusOK, `{"choices": []}`), "response has no choices"},
		{"prose reply", httpmock.NewStringResponder(http.StatusOK, completion("I cannot tell.")), "reply has no JSON object"},
		{"broken json", httpmock.NewStringResponder(http.StatusOK, completion(`{"status": "danger",}`)), ""},
		{"unknown status", httpmock.NewStringResponder(http.StatusOK, completion(`{"status": "alarming", "confidence": 80}`)), `reply has unknown status "alarming"`},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			setupHTTPMock(t)
			httpmock.RegisterResponder(http.MethodPost, testURL, c.responder)

			m := metrics.New()
			result := newTestClient(m).Analyze(context.Background(), Frame{Data: "data:"})

			assert.True(t, result.Degraded)
			assert.Equal(t, "safe", result.Status)
			assert.Equal(t, 0, result.Confidence)
			assert.NotEmpty(t, result.Reason)
			if c.reason != "" {
				assert.Equal(t, c.reason, result.Reason)
			}
			assert.Equal(t, float64(1), testutil.ToFloat64(m.Analyses.WithLabelValues(metrics.ANALYSIS_DEGRADED)))
		})
	}
}

func TestAnalyzeWithoutConfig(t *testing.T) {
	result := NewClient(Config{}, nil).Analyze(context.Background(), Frame{Data: "data:"})

	assert.True(t, result.Degraded)
	assert.Equal(t, "vision endpoint is not configured", result.Reason)
}

func TestParseReplyClampsConfidence(t *testing.T) {
	result, reason := parseReply(`{"status":"warning","confidence":250,"description":"crowd"}`)

	assert.Empty(t, reason)
	assert.Equal(t, "warning", result.Status)
	assert.Equal(t, 100, result.Confidence)
}
