package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/perspectron/perspectron/pkg/config"
	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/score"
)

const DefaultAnalyzeURL = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// Client is the external scoring collaborator. A request failure is always
// reported through domain.ErrScoringService, never as a zero vector.
//
//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter
type Client interface {
	Score(ctx context.Context, text string) (score.Vector, error)
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	Languages           []string            `json:"languages"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
			Type  string  `json:"type"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

type perspectiveClient struct {
	logger     *logrus.Logger
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	analyzeURL string
	apiKey     string
	languages  []string
	attributes []score.Attribute
}

func NewPerspectiveClient(logger *logrus.Logger, cfg config.ScoringConfig) Client {
	analyzeURL := cfg.URL
	if analyzeURL == "" {
		analyzeURL = DefaultAnalyzeURL
	}

	attributes := make([]score.Attribute, 0, len(cfg.Attributes))
	for _, attr := range cfg.Attributes {
		attributes = append(attributes, score.Attribute(attr))
	}
	if len(attributes) == 0 {
		attributes = score.DefaultAttributes
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "perspective",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("scoring circuit breaker state change")
		},
	})

	return &perspectiveClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		analyzeURL: analyzeURL,
		apiKey:     cfg.APIKey,
		languages:  cfg.Languages,
		attributes: attributes,
	}
}

func (c *perspectiveClient) Score(ctx context.Context, text string) (score.Vector, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.analyze(ctx, text)
	})
	if err != nil {
		if domain.IsScoringServiceError(err) || errors.Is(err, domain.ErrInvalidScoreValue) {
			return nil, err
		}
		// Breaker-open and any other transport-level failure count as a
		// scoring failure, never as a zero score.
		return nil, fmt.Errorf("%w: %v", domain.ErrScoringService, err)
	}
	vector, ok := result.(score.Vector)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected breaker result type", domain.ErrScoringService)
	}
	return vector, nil
}

func (c *perspectiveClient) analyze(ctx context.Context, text string) (score.Vector, error) {
	reqBody := analyzeRequest{
		Languages:           c.languages,
		RequestedAttributes: make(map[string]struct{}, len(c.attributes)),
		DoNotStore:          true,
	}
	reqBody.Comment.Text = text
	for _, attr := range c.attributes {
		reqBody.RequestedAttributes[string(attr)] = struct{}{}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal analyze request: %v", domain.ErrScoringService, err)
	}

	requestURL := c.analyzeURL
	if c.apiKey != "" {
		requestURL += "?key=" + url.QueryEscape(c.apiKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create analyze request: %v", domain.ErrScoringService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WithError(err).Error("failed to send analyze request")
		return nil, fmt.Errorf("%w: %v", domain.ErrScoringService, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read analyze response: %v", domain.ErrScoringService, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status_code": httpResp.StatusCode,
			"response":    string(body),
		}).Error("scoring service returned error")
		return nil, fmt.Errorf("%w: status %d", domain.ErrScoringService, httpResp.StatusCode)
	}

	var analyzeResp analyzeResponse
	if err := json.Unmarshal(body, &analyzeResp); err != nil {
		return nil, fmt.Errorf("%w: malformed analyze response: %v", domain.ErrScoringService, err)
	}
	if len(analyzeResp.AttributeScores) == 0 {
		return nil, fmt.Errorf("%w: analyze response contains no attribute scores", domain.ErrScoringService)
	}

	vector := make(score.Vector, len(analyzeResp.AttributeScores))
	for attr, attrScore := range analyzeResp.AttributeScores {
		vector[score.Attribute(attr)] = attrScore.SummaryScore.Value
	}
	if err := vector.Validate(); err != nil {
		return nil, err
	}
	return vector, nil
}
