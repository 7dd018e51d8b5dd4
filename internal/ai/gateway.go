package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/domain"
)

// GatewayClient talks to the model gateway over JSON HTTP. It implements
// Classifier, Resolver and Enhancer.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGatewayClient builds a client from configuration.
func NewGatewayClient(cfg config.AIConfig) *GatewayClient {
	return &GatewayClient{
		baseURL: cfg.GatewayURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type classifyRequest struct {
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	OrganizationID string `json:"organization_id"`
}

type classifyResponse struct {
	CategoryID    *string  `json:"category_id"`
	Criticality   string   `json:"criticality"`
	Confidence    *float64 `json:"confidence"`
	EstimatedTime *int     `json:"estimated_time"`
}

// Classify implements Classifier.
func (g *GatewayClient) Classify(ctx context.Context, subject, description, organizationID string) (Classification, error) {
	var resp classifyResponse
	err := g.post(ctx, "/v1/classify", classifyRequest{
		Subject:        subject,
		Description:    description,
		OrganizationID: organizationID,
	}, &resp)
	if err != nil {
		return Classification{}, err
	}

	criticality := domain.Criticality(resp.Criticality)
	if criticality != domain.CriticalityLow && criticality != domain.CriticalityHigh {
		criticality = domain.CriticalityUnknown
	}
	return Classification{
		CategoryID:    resp.CategoryID,
		Criticality:   criticality,
		Confidence:    resp.Confidence,
		EstimatedTime: resp.EstimatedTime,
	}, nil
}

type solutionRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type solutionResponse struct {
	Solution string `json:"solution"`
	Reason   string `json:"reason,omitempty"`
}

// GenerateSolution implements Resolver.
func (g *GatewayClient) GenerateSolution(ctx context.Context, ticket *domain.Ticket, categoryName string) (Outcome, error) {
	var resp solutionResponse
	err := g.post(ctx, "/v1/solutions", solutionRequest{
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Category:    categoryName,
	}, &resp)
	if err != nil {
		return Outcome{}, err
	}
	if resp.Solution == "" {
		reason := resp.Reason
		if reason == "" {
			reason = "gateway returned no solution"
		}
		return FailedOutcome(reason), nil
	}
	return ResolvedOutcome(resp.Solution), nil
}

type enhanceRequest struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type enhanceResponse struct {
	Text string `json:"text"`
}

// Enhance implements Enhancer.
func (g *GatewayClient) Enhance(ctx context.Context, text, tone string) (string, error) {
	var resp enhanceResponse
	if err := g.post(ctx, "/v1/enhance", enhanceRequest{Text: text, Tone: tone}, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return text, nil
	}
	return resp.Text, nil
}

type analysisRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
}

type analysisResponse struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	FollowUp  bool   `json:"follow_up"`
}

// AnalyzeResolution implements Analyzer.
func (g *GatewayClient) AnalyzeResolution(ctx context.Context, ticket *domain.Ticket, resolution string) (Analysis, error) {
	var resp analysisResponse
	err := g.post(ctx, "/v1/analysis", analysisRequest{
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Resolution:  resolution,
	}, &resp)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		Summary:   resp.Summary,
		Sentiment: resp.Sentiment,
		FollowUp:  resp.FollowUp,
	}, nil
}

func (g *GatewayClient) post(ctx context.Context, path string, payload, out any) error {
	if g.baseURL == "" {
		return fmt.Errorf("ai gateway not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ai gateway %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
