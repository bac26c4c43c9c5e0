package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"gate-controller/internal/domain/gate"
)

// RemoteClient talks JSON over HTTP to an external model server exposing
// object detection and text recognition. It implements Detector and
// Recognizer.
type RemoteClient struct {
	baseURL string
	client  *http.Client
}

func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &RemoteClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout, Transport: t},
	}
}

type imagePayload struct {
	Pixels string `json:"pixels"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type detectResponse struct {
	Detections []struct {
		Class      int     `json:"class"`
		Confidence float64 `json:"confidence"`
		Box        [4]int  `json:"box"`
	} `json:"detections"`
}

type readTextResponse struct {
	Fragments []string `json:"fragments"`
}

type labelsResponse struct {
	Labels []string `json:"labels"`
}

// Ping verifies the model server is reachable. Called once at startup; a
// failure is fatal before the session starts.
func (c *RemoteClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server health check returned %d", resp.StatusCode)
	}
	return nil
}

// FetchLabels retrieves the detector's ordered class list.
func (c *RemoteClient) FetchLabels(ctx context.Context) (LabelTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/labels", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("/v1/labels returned %d", resp.StatusCode)
	}
	var out labelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return LabelTable(out.Labels), nil
}

func (c *RemoteClient) Infer(ctx context.Context, frame *Frame) ([]Detection, error) {
	in := imagePayload{
		Pixels: base64.StdEncoding.EncodeToString(frame.Pixels),
		Width:  frame.Width,
		Height: frame.Height,
	}
	var out detectResponse
	if err := c.post(ctx, "/v1/detect", in, &out); err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(out.Detections))
	for _, d := range out.Detections {
		detections = append(detections, Detection{
			ClassIndex: d.Class,
			Confidence: d.Confidence,
			Region:     gate.Region{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
		})
	}
	return detections, nil
}

func (c *RemoteClient) ReadText(ctx context.Context, crop []byte, width, height int) ([]string, error) {
	in := imagePayload{
		Pixels: base64.StdEncoding.EncodeToString(crop),
		Width:  width,
		Height: height,
	}
	var out readTextResponse
	if err := c.post(ctx, "/v1/read-text", in, &out); err != nil {
		return nil, err
	}
	return out.Fragments, nil
}

func (c *RemoteClient) post(ctx context.Context, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
