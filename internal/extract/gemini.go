package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	geminiTimeout        = 60 * time.Second
	serviceName          = "gemini"

	// MaxImages is the most images one extraction call accepts.
	MaxImages = 4
)

// GeminiClient implements Service over the Gemini generateContent REST API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewGeminiClient constructs a client. An empty baseURL or model selects the defaults.
func NewGeminiClient(apiKey, model, baseURL string, logger *slog.Logger) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeminiBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      normalizeModel(model),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: geminiTimeout},
		log:        logger,
	}, nil
}

const contactPrompt = `You read Japanese business cards. The images are the front and, if present, the back of one card.
Return a JSON object with any of these keys you can read: companyName, name, furigana, department, title,
zipCode, address, tel, mobile, fax, email, website (array), sns (array), otherTel, notes,
classification (one of 取引先, 協力会社, 顧客, その他), customFields (array of {"key","value"}).
Omit keys you cannot read. Do not invent values.`

const policyPrompt = `You analyze documents such as insurance policies. Extract every labelled item you can read.
Return a JSON object {"fields":[{"key":"...","value":"..."}]} keeping the document's order.`

const summaryPrompt = `Summarize the following memo in a few short markdown bullet points, in the memo's language.`

const mappingPrompt = `Match spreadsheet column headers to internal field names.
Return a JSON object whose keys are the external headers and whose values are one of the internal
field names, or "" when no field fits. Use each internal field at most once.`

// ExtractContact implements Service.
func (c *GeminiClient) ExtractContact(ctx context.Context, images []Image) (*record.Contact, error) {
	if err := checkImages(images, 2); err != nil {
		return nil, err
	}

	var payload contactPayload
	if err := c.generateJSON(ctx, contactPrompt, images, &payload); err != nil {
		return nil, err
	}
	return payload.toContact(), nil
}

// ExtractPolicy implements Service.
func (c *GeminiClient) ExtractPolicy(ctx context.Context, images []Image) ([]record.PolicyField, error) {
	if err := checkImages(images, MaxImages); err != nil {
		return nil, err
	}

	var payload struct {
		Fields []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"fields"`
	}
	if err := c.generateJSON(ctx, policyPrompt, images, &payload); err != nil {
		return nil, err
	}

	fields := make([]record.PolicyField, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			continue
		}
		fields = append(fields, record.PolicyField{Key: key, Value: strings.TrimSpace(f.Value)})
	}
	return fields, nil
}

// Summarize implements Service.
func (c *GeminiClient) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.NewInvalidRequest("text is required")
	}

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: summaryPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: text}}}},
	}
	out, err := c.generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ProposeMapping implements Service.
func (c *GeminiClient) ProposeMapping(ctx context.Context, external, internal []string) (map[string]string, error) {
	if len(external) == 0 {
		return map[string]string{}, nil
	}

	body, _ := json.Marshal(map[string][]string{"external": external, "internal": internal})
	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: mappingPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: string(body)}}}},
		GenerationConfig:  &generationConfig{ResponseMIMEType: "application/json"},
	}
	out, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	proposal := map[string]string{}
	if err := json.Unmarshal([]byte(stripFence(out)), &proposal); err != nil {
		return nil, errors.NewExternalServiceFailure(serviceName, fmt.Errorf("unparseable mapping: %w", err))
	}
	return proposal, nil
}

func (c *GeminiClient) generateJSON(ctx context.Context, prompt string, images []Image, out any) error {
	parts := []part{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}
	text, err := c.generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), out); err != nil {
		return errors.NewExternalServiceFailure(serviceName, fmt.Errorf("unparseable response: %w", err))
	}
	return nil
}

// generate runs one generateContent call and returns the first candidate's text.
func (c *GeminiClient) generate(ctx context.Context, reqBody generateRequest) (string, error) {
	// The key travels in a header; transport errors quote the URL
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	start := time.Now()
	var resp generateResponse
	err := c.doJSON(ctx, url, reqBody, &resp)
	if err != nil {
		if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
			return "", errors.NewCancelled("gemini request")
		}
		c.log.Warn("gemini call failed", "model", c.model, "elapsed", time.Since(start), "error", err)
		return "", errors.NewExternalServiceFailure(serviceName, err)
	}
	c.log.Debug("gemini call", "model", c.model, "elapsed", time.Since(start))

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.NewExternalServiceFailure(serviceName, fmt.Errorf("empty response from gemini"))
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("gemini api error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkImages(images []Image, max int) error {
	if len(images) == 0 {
		return errors.NewInvalidRequest("at least one image is required")
	}
	if len(images) > max {
		return errors.NewInvalidRequest(fmt.Sprintf("at most %d images are accepted", max))
	}
	return nil
}

func normalizeModel(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

type contactPayload struct {
	CompanyName    *string  `json:"companyName"`
	Name           *string  `json:"name"`
	Furigana       *string  `json:"furigana"`
	Department     *string  `json:"department"`
	Title          *string  `json:"title"`
	ZipCode        *string  `json:"zipCode"`
	Address        *string  `json:"address"`
	Tel            *string  `json:"tel"`
	Mobile         *string  `json:"mobile"`
	Fax            *string  `json:"fax"`
	Email          *string  `json:"email"`
	Website        []string `json:"website"`
	SNS            []string `json:"sns"`
	OtherTel       *string  `json:"otherTel"`
	Notes          *string  `json:"notes"`
	Classification string   `json:"classification"`
	CustomFields   []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"customFields"`
}

func (p *contactPayload) toContact() *record.Contact {
	c := &record.Contact{
		CompanyName: p.CompanyName,
		Name:        p.Name,
		Furigana:    p.Furigana,
		Department:  p.Department,
		Title:       p.Title,
		ZipCode:     p.ZipCode,
		Address:     p.Address,
		Tel:         p.Tel,
		Mobile:      p.Mobile,
		Fax:         p.Fax,
		Email:       p.Email,
		Website:     p.Website,
		SNS:         p.SNS,
		OtherTel:    p.OtherTel,
		Notes:       p.Notes,
	}
	if cl, ok := record.ParseClassification(strings.TrimSpace(p.Classification)); ok {
		c.Classification = &cl
	}
	for _, cf := range p.CustomFields {
		if strings.TrimSpace(cf.Key) == "" {
			continue
		}
		c.CustomFields = append(c.CustomFields, record.CustomField{Key: strings.TrimSpace(cf.Key), Value: cf.Value})
	}
	return c
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
