package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facerelay/internal/config"
)

const (
	// identifyChunkSize is the face-service limit per identify call.
	identifyChunkSize = 10
	// remoteTrainPollInterval spaces checks on a running group training.
	remoteTrainPollInterval = 5 * time.Second
	// remoteTrainPollAttempts bounds the wait for a running training.
	remoteTrainPollAttempts = 24
)

// Remote is the face-service recognition backend: a hosted API that
// manages person groups, holds the trained models and answers
// detect/identify calls.
type Remote struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	thresholds config.MatchingThresholds

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRemote(baseURL, apiKey string, thresholds config.MatchingThresholds) *Remote {
	return &Remote{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 30 * time.Second},
		thresholds: thresholds,
		sleep:      sleepCtx,
	}
}

func (r *Remote) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("could not create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("could not read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (r *Remote) doJSON(ctx context.Context, method, endpoint string, requestBody, result any) (int, error) {
	var reader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return 0, fmt.Errorf("could not marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	status, body, err := r.do(ctx, method, endpoint, reader, "application/json")
	if err != nil {
		return status, err
	}
	if status >= http.StatusBadRequest {
		return status, fmt.Errorf("face service returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return status, fmt.Errorf("could not unmarshal response: %w", err)
		}
	}
	return status, nil
}

func (r *Remote) CreateGroupIfAbsent(ctx context.Context, groupID string) error {
	status, _, err := r.do(ctx, http.MethodGet, "/persongroups/"+groupID, nil, "")
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("face service returned status %d checking group %s", status, groupID)
	}

	_, err = r.doJSON(ctx, http.MethodPut, "/persongroups/"+groupID, map[string]string{"name": groupID}, nil)
	return err
}

func (r *Remote) CreateFace(ctx context.Context, groupID string) (string, error) {
	var created struct {
		PersonID string `json:"personId"`
	}
	if _, err := r.doJSON(ctx, http.MethodPost, "/persongroups/"+groupID+"/persons",
		map[string]string{"name": groupID}, &created); err != nil {
		return "", err
	}
	return created.PersonID, nil
}

// Train adds a sample image to the face and re-triggers group
// training. A training run already in progress is waited out first so
// the new sample lands in a consistent model.
func (r *Remote) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	if err := r.waitForTraining(ctx, groupID); err != nil {
		return false, err
	}

	status, body, err := r.do(ctx, http.MethodPost,
		"/persongroups/"+groupID+"/persons/"+faceID+"/persistedFaces",
		bytes.NewReader(image), "application/octet-stream")
	if err != nil {
		return false, err
	}
	if status == http.StatusBadRequest {
		// The service rejects samples without a usable face.
		return false, nil
	}
	if status >= http.StatusBadRequest {
		return false, fmt.Errorf("face service returned status %d adding face: %s", status, strings.TrimSpace(string(body)))
	}

	if _, err := r.doJSON(ctx, http.MethodPost, "/persongroups/"+groupID+"/train", nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Remote) waitForTraining(ctx context.Context, groupID string) error {
	for attempt := 0; attempt < remoteTrainPollAttempts; attempt++ {
		var training struct {
			Status string `json:"status"`
		}
		status, err := r.doJSON(ctx, http.MethodGet, "/persongroups/"+groupID+"/training", nil, &training)
		if status == http.StatusNotFound {
			// Never trained yet; nothing to wait for.
			return nil
		}
		if err != nil {
			return err
		}
		if training.Status != "running" {
			return nil
		}
		if err := r.sleep(ctx, remoteTrainPollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("group %s training did not settle", groupID)
}

func (r *Remote) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	status, body, err := r.do(ctx, http.MethodPost, "/detect", bytes.NewReader(image), "application/octet-stream")
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, fmt.Errorf("face service returned status %d detecting: %s", status, strings.TrimSpace(string(body)))
	}

	var detected []struct {
		FaceID string `json:"faceId"`
	}
	if err := json.Unmarshal(body, &detected); err != nil {
		return nil, fmt.Errorf("could not unmarshal detect response: %w", err)
	}

	faceIDs := make([]string, 0, len(detected))
	for _, d := range detected {
		if d.FaceID != "" {
			faceIDs = append(faceIDs, d.FaceID)
		}
	}
	if len(faceIDs) == 0 {
		return nil, nil
	}

	var matched []string
	for start := 0; start < len(faceIDs); start += identifyChunkSize {
		end := min(start+identifyChunkSize, len(faceIDs))

		var identifications []struct {
			FaceID     string `json:"faceId"`
			Candidates []struct {
				PersonID   string  `json:"personId"`
				Confidence float64 `json:"confidence"`
			} `json:"candidates"`
		}
		if _, err := r.doJSON(ctx, http.MethodPost, "/identify", map[string]any{
			"faceIds":             faceIDs[start:end],
			"personGroupId":       groupID,
			"confidenceThreshold": r.thresholds.MinIdentifyConfidence,
		}, &identifications); err != nil {
			return nil, err
		}

		for _, identification := range identifications {
			for _, candidate := range identification.Candidates {
				matched = append(matched, candidate.PersonID)
			}
		}
	}
	return matched, nil
}

func (r *Remote) DeleteFace(ctx context.Context, groupID, faceID string) error {
	_, err := r.doJSON(ctx, http.MethodDelete, "/persongroups/"+groupID+"/persons/"+faceID, nil, nil)
	return err
}

func (r *Remote) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := r.doJSON(ctx, http.MethodDelete, "/persongroups/"+groupID, nil, nil)
	return err
}

func (r *Remote) DeleteAll(ctx context.Context) error {
	var groups []struct {
		PersonGroupID string `json:"personGroupId"`
	}
	if _, err := r.doJSON(ctx, http.MethodGet, "/persongroups", nil, &groups); err != nil {
		return err
	}
	for _, group := range groups {
		if err := r.DeleteGroup(ctx, group.PersonGroupID); err != nil {
			return err
		}
	}
	return nil
}
