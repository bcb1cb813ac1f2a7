package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lcoppola/verba/internal/audio"
	"github.com/lcoppola/verba/internal/reliability"
)

// HTTPTranscriber posts utterance audio to a transcription service and
// returns the recognized text. The service accepts a WAV body on /transcribe
// and answers {"transcription": "..."} or {"error": "..."}.
type HTTPTranscriber struct {
	url    string
	client *http.Client
}

func NewHTTPTranscriber(url string) *HTTPTranscriber {
	return &HTTPTranscriber{
		url: strings.TrimRight(strings.TrimSpace(url), "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
	Error         string `json:"error"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if t.url == "" {
		return "", errors.New("transcriber endpoint not configured")
	}

	wav, err := audio.EncodeWAVPCM16LE(pcm, sampleRate)
	if err != nil {
		return "", fmt.Errorf("encode utterance: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url+"/transcribe", bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	res, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &reliability.StatusError{
			Provider: "transcriber",
			Code:     res.StatusCode,
			Detail:   strings.TrimSpace(string(body)),
		}
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("transcriber error: %s", parsed.Error)
	}
	text := strings.TrimSpace(parsed.Transcription)
	if text == "" {
		return "", errors.New("empty transcription")
	}
	return text, nil
}
