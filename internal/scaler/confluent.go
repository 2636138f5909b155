package scaler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	clustersPath  = "/cmk/v2/clusters/"
	dedicatedKind = "Dedicated"
)

type ConfluentConfig struct {
	Endpoint    string
	Environment string
	APIKey      string
	APISecret   string
	Timeout     time.Duration
}

// ConfluentScaler talks to the Confluent Cloud cmk/v2 cluster API.
type ConfluentScaler struct {
	client      *http.Client
	endpoint    string
	environment string
	apiKey      string
	apiSecret   string
}

func NewConfluentScaler(cfg ConfluentConfig) *ConfluentScaler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ConfluentScaler{
		client:      &http.Client{Timeout: timeout},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		environment: cfg.Environment,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
	}
}

type clusterResponse struct {
	ID   string `json:"id"`
	Spec struct {
		Config struct {
			Kind string `json:"kind"`
			CKU  int    `json:"cku"`
		} `json:"config"`
	} `json:"spec"`
	Status struct {
		Phase string `json:"phase"`
		CKU   int    `json:"cku"`
	} `json:"status"`
}

type resizeRequest struct {
	Spec resizeSpec `json:"spec"`
}

type resizeSpec struct {
	Config      resizeConfig `json:"config"`
	Environment environment  `json:"environment"`
}

type resizeConfig struct {
	CKU  int    `json:"cku"`
	Kind string `json:"kind"`
}

type environment struct {
	ID string `json:"id"`
}

func (s *ConfluentScaler) clusterURL(clusterID string) string {
	return s.endpoint + clustersPath + url.PathEscape(clusterID)
}

func (s *ConfluentScaler) GetClusterState(ctx context.Context, clusterID string) (*models.ClusterState, error) {
	target := s.clusterURL(clusterID) + "?environment=" + url.QueryEscape(s.environment)

	body, err := s.do(ctx, http.MethodGet, target, nil, clusterID)
	if err != nil {
		return nil, err
	}

	var resp clusterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.Status.CKU < 1 || resp.Spec.Config.CKU < 1 {
		return nil, fmt.Errorf("%w: cluster %s reports cku status=%d spec=%d",
			ErrInvalidResponse, clusterID, resp.Status.CKU, resp.Spec.Config.CKU)
	}

	state := &models.ClusterState{
		ClusterID:       clusterID,
		CurrentCapacity: resp.Status.CKU,
		TargetCapacity:  resp.Spec.Config.CKU,
		Phase:           resp.Status.Phase,
		ObservedAt:      time.Now(),
	}

	logger.WithClusterCtx(ctx, clusterID).Debugf(
		"Cluster state: current=%d target=%d phase=%s",
		state.CurrentCapacity, state.TargetCapacity, state.Phase,
	)

	return state, nil
}

func (s *ConfluentScaler) Resize(ctx context.Context, clusterID string, targetCapacity int) error {
	if targetCapacity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, targetCapacity)
	}

	payload, err := json.Marshal(resizeRequest{Spec: resizeSpec{
		Config:      resizeConfig{CKU: targetCapacity, Kind: dedicatedKind},
		Environment: environment{ID: s.environment},
	}})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrScalingFailed, err)
	}

	if _, err := s.do(ctx, http.MethodPatch, s.clusterURL(clusterID), payload, clusterID); err != nil {
		return err
	}

	logger.WithClusterCtx(ctx, clusterID).Infof("Resize to %d CKU accepted", targetCapacity)
	return nil
}

func (s *ConfluentScaler) do(ctx context.Context, method, target string, payload []byte, clusterID string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrScalingFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(s.apiKey, s.apiSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrScalingFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrScalingFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrClusterBusy, clusterID)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, strings.TrimSpace(string(body)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrScalingFailed, resp.StatusCode)
	}

	return body, nil
}

func (s *ConfluentScaler) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
