package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"oppradar/ingest-service/internal/model"
)

// GeminiConfig configures the AI-backed extractor.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// GeminiExtractor analyzes message text with Gemini. The prompt contract
// requires a JSON array with one element per distinct opportunity, or a
// single NOISE element when nothing qualifies.
type GeminiExtractor struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewGemini builds a GeminiExtractor.
func NewGemini(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (*GeminiExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GeminiExtractor{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		log:     log.With(zap.String("component", "gemini-extractor")),
	}, nil
}

// candidateSchema mirrors one element of the prompt's JSON array contract.
type candidateSchema struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Industry       string   `json:"industry"`
	Location       string   `json:"location"`
	Country        string   `json:"country"`
	RemoteStatus   string   `json:"remoteStatus"`
	SalaryText     string   `json:"salaryText"`
	EmploymentType string   `json:"employmentType"`
	Description    string   `json:"description"`
	Requirements   string   `json:"requirements"`
	SourceURL      string   `json:"sourceUrl"`
	Confidence     string   `json:"confidence"`
	Tags           []string `json:"tags"`
	Reasons        []string `json:"reasons"`
	Concerns       []string `json:"concerns"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":           {Type: genai.TypeString},
			"title":          {Type: genai.TypeString},
			"company":        {Type: genai.TypeString},
			"industry":       {Type: genai.TypeString},
			"location":       {Type: genai.TypeString},
			"country":        {Type: genai.TypeString},
			"remoteStatus":   {Type: genai.TypeString},
			"salaryText":     {Type: genai.TypeString},
			"employmentType": {Type: genai.TypeString},
			"description":    {Type: genai.TypeString},
			"requirements":   {Type: genai.TypeString},
			"sourceUrl":      {Type: genai.TypeString},
			"confidence":     {Type: genai.TypeString},
			"tags":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"reasons":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"concerns":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"type", "title", "company", "description"},
	},
}

// Extract implements Extractor. API errors and unparseable responses are
// converted into a single NOISE candidate so one bad response never aborts
// an ingestion run.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) ([]model.Candidate, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.client.Models.GenerateContent(
		ctx,
		e.model,
		genai.Text(buildPrompt(text)),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		e.log.Warn("gemini call failed, degrading to NOISE", zap.Error(err))
		return noiseCandidate(text, "AI analysis failed"), nil
	}

	raw := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(resp.Text()))

	var parsed []candidateSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		e.log.Warn("gemini response was not a JSON array, degrading to NOISE", zap.Error(err))
		return noiseCandidate(text, "AI analysis failed"), nil
	}
	if len(parsed) == 0 {
		return noiseCandidate(text, "AI analysis returned no candidates"), nil
	}

	out := make([]model.Candidate, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, normalize(model.Candidate{
			Type:           model.OpportunityType(strings.ToUpper(strings.TrimSpace(p.Type))),
			Title:          strings.TrimSpace(p.Title),
			Company:        strings.TrimSpace(p.Company),
			Industry:       strings.TrimSpace(p.Industry),
			Location:       strings.TrimSpace(p.Location),
			Country:        strings.TrimSpace(p.Country),
			RemoteStatus:   strings.TrimSpace(p.RemoteStatus),
			SalaryText:     strings.TrimSpace(p.SalaryText),
			EmploymentType: strings.TrimSpace(p.EmploymentType),
			Description:    strings.TrimSpace(p.Description),
			Requirements:   strings.TrimSpace(p.Requirements),
			SourceURL:      strings.TrimSpace(p.SourceURL),
			Confidence:     model.Confidence(strings.ToUpper(strings.TrimSpace(p.Confidence))),
			Tags:           p.Tags,
			Reasons:        p.Reasons,
			Concerns:       p.Concerns,
		}, text))
	}
	return out, nil
}

func buildPrompt(text string) string {
	return strings.TrimSpace(`
Analyze the following email content. It may describe a single job opportunity,
a business opportunity (tender/contract), several distinct opportunities (a
digest email), or noise (newsletters, promotions, spam, general info).

Return ONLY a JSON array with one object per distinct opportunity. If nothing
qualifies, return an array with a single object of type "NOISE".

Each object has these keys:
- type: "JOB" | "BUSINESS" | "NOISE"
- title, company, industry, location, country, remoteStatus, salaryText,
  employmentType, requirements, sourceUrl: strings (empty when unknown)
- description: brief summarized description (max 200 words)
- confidence: "LOW" | "MEDIUM" | "HIGH"
- tags: short topical labels
- reasons: why it qualifies
- concerns: anything doubtful

Rules:
- A digest listing N distinct roles must produce N objects.
- sourceUrl is the direct link to the full listing when one is present.
- Do not include extra keys.

Email Content:
` + text + `
`)
}
