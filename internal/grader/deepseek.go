package grader

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/observability"
)

// DeepSeek API defaults.
const (
	defaultDeepSeekURL   = "https://api.deepseek.com"
	defaultDeepSeekModel = "deepseek-chat"
	deepSeekTimeout      = 20 * time.Second
	gradeTemperature     = 0.3
	gradeMaxTokens       = 500
)

const systemPrompt = `You are a quantitative crypto analyst specializing in early-stage meme coin behavior.
Your task is to assess whether a token's early on-chain and market behavior resembles historically successful launches.
Be conservative. Avoid speculative optimism.`

// DeepSeek grades candidates through the DeepSeek chat API. Every
// failure path degrades to a conservative {WATCH, 0} grade so the
// funnel's cutoff rejects instead of the cycle erroring out.
type DeepSeek struct {
	client *resty.Client
	apiKey string
	model  string
	log    *logrus.Entry
}

// NewDeepSeek builds the LLM grader from options.
func NewDeepSeek(opts Options) *DeepSeek {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultDeepSeekURL
	}
	model := opts.Model
	if model == "" {
		model = defaultDeepSeekModel
	}
	timeout := deepSeekTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(opts.APIKey)

	return &DeepSeek{
		client: client,
		apiKey: opts.APIKey,
		model:  model,
		log:    opts.Logger,
	}
}

// chat wire types (OpenAI-compatible).
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// gradePayload is the JSON shape the model is instructed to return.
type gradePayload struct {
	GradeScore  float64 `json:"grade_score"`
	Decision    string  `json:"decision"`
	Reasoning   string  `json:"reasoning"`
	PotentialMC float64 `json:"potential_mc"`
}

// examData is the merged evidence sheet, priority-ordered the way the
// prompt weighs it.
type examData struct {
	Security struct {
		TaxBuy           float64 `json:"tax_buy"`
		TaxSell          float64 `json:"tax_sell"`
		Honeypot         bool    `json:"honeypot"`
		Mintable         bool    `json:"mintable"`
		ContractVerified bool    `json:"contract_verified"`
		Blacklist        bool    `json:"blacklist"`
	} `json:"1_PRIORITY_SECURITY"`
	Behavior struct {
		BuySellRatio float64 `json:"buy_sell_ratio"`
		TxPerMin     float64 `json:"tx_per_min"`
		PriceTrend   string  `json:"price_trend"`
		Volatility   float64 `json:"volatility"`
		Confidence   float64 `json:"behavior_confidence"`
		Summary      string  `json:"behavior_summary"`
	} `json:"2_PRIORITY_BEHAVIOR"`
	Market struct {
		LiquidityUSD float64 `json:"liquidity_usd"`
		MarketCapFDV float64 `json:"market_cap_fdv"`
		PairAge      string  `json:"pair_age"`
		VolumeH1     float64 `json:"volume_h1"`
		PreScore     int     `json:"pre_screen_score"`
	} `json:"3_PRIORITY_MARKET"`
	Holders struct {
		HolderCount int     `json:"holder_count"`
		Top5Pct     float64 `json:"top_5_pct"`
	} `json:"4_PRIORITY_HOLDERS"`
}

// conservativeGrade is returned on every failure path: WATCH with a
// zero score passes through and lets the cutoff reject.
func conservativeGrade(reason string) *domain.Grade {
	return &domain.Grade{
		Decision:  domain.DecisionWatch,
		Score:     0,
		Reasoning: reason,
	}
}

// Grade asks the model for a 0-100 grade. It never returns an error;
// broken transport or a malformed reply yields the conservative grade.
func (d *DeepSeek) Grade(ctx context.Context, req Request) (*domain.Grade, error) {
	if d.apiKey == "" {
		return conservativeGrade("AI skipped (no key)"), nil
	}

	body := chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: gradeTemperature,
		MaxTokens:   gradeMaxTokens,
	}

	started := time.Now()
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	observability.RecordCollaboratorRequest("deepseek", time.Since(started).Seconds(), err)

	if err != nil {
		d.log.WithError(err).Warn("grader request failed")
		return conservativeGrade("AI offline"), nil
	}
	if resp.StatusCode() != 200 {
		d.log.WithField("status", resp.StatusCode()).Warn("grader returned non-200")
		return conservativeGrade(fmt.Sprintf("AI error (HTTP %d)", resp.StatusCode())), nil
	}

	grade, err := parseGradeResponse(resp.Body())
	if err != nil {
		d.log.WithError(err).Warn("grader reply unparseable")
		return conservativeGrade("AI reply unparseable"), nil
	}
	return grade, nil
}

// parseGradeResponse unwraps the chat envelope, strips markdown fences,
// and decodes the grade payload.
func parseGradeResponse(raw []byte) (*domain.Grade, error) {
	var envelope chatResponse
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode chat envelope")
	}
	if len(envelope.Choices) == 0 {
		return nil, errors.New("empty choices")
	}

	content := envelope.Choices[0].Message.Content
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var payload gradePayload
	if err := sonic.Unmarshal([]byte(content), &payload); err != nil {
		return nil, errors.Wrap(err, "decode grade payload")
	}

	decision := domain.DecisionIgnore
	if strings.EqualFold(payload.Decision, string(domain.DecisionWatch)) {
		decision = domain.DecisionWatch
	}

	return &domain.Grade{
		Decision:    decision,
		Score:       int(math.Round(payload.GradeScore)),
		Reasoning:   payload.Reasoning,
		PotentialMC: payload.PotentialMC,
	}, nil
}

// buildPrompt renders the strict-professor exam over the merged data.
func buildPrompt(req Request) string {
	var data examData

	if p := req.Security; p != nil {
		data.Security.TaxBuy = p.BuyTaxPct
		data.Security.TaxSell = p.SellTaxPct
		data.Security.Honeypot = p.Honeypot
		data.Security.Mintable = p.Mintable
		data.Security.ContractVerified = p.OpenSource
		data.Security.Blacklist = p.Blacklisted
		data.Holders.HolderCount = p.HolderCount
		data.Holders.Top5Pct = p.TopHoldersPct(5)
	}
	if o := req.Observation; o != nil {
		data.Behavior.BuySellRatio = o.BuySellRatio
		data.Behavior.PriceTrend = o.PriceTrend
		data.Behavior.Volatility = o.Volatility
	}
	if c := req.Candidate; c != nil {
		data.Behavior.TxPerMin = c.TxPerMin()
		data.Market.LiquidityUSD = c.LiquidityUSD
		data.Market.MarketCapFDV = c.FDV
		data.Market.PairAge = fmt.Sprintf("%.1fm", c.AgeMinutes)
		data.Market.VolumeH1 = c.VolumeH1
	}
	data.Behavior.Confidence = req.Behavior.Confidence
	data.Behavior.Summary = req.Behavior.Summary
	data.Market.PreScore = req.Score

	blob, err := sonic.Marshal(data)
	if err != nil {
		blob = []byte("{}")
	}

	return fmt.Sprintf(`
ACT AS A STRICT CRYPTO PROFESSOR. Grade this token launch.

GRADING CRITERIA (Weighted):
1. SECURITY (35%%): Must be tax <= 8%%, not mintable, verified.
2. BEHAVIOR (35%%): High transaction count, Buying pressure > Selling.
3. MARKET (20%%): Liquidity $5k-$80k, MC $8k-$40k.
4. HOLDERS (10%%): Spread out, not concentrated.

CRITICAL FAIL CONDITIONS (Instant Fail - Max Grade 40):
- If Security measures are suspicious (Honeypot, High Tax > 50%%, Blacklist).
- If Liquidity is actively being REMOVED or is suspiciously Low (< $1000).
- If BEHAVIOR IS DEAD: (Zero volume in last minute).
- If PRICE IS RUGGING: (Crash > 90%%).
- DIP LOGIC: Allow dips ONLY IF "Absorption" is detected (High Vol + Buy/Sell Ratio > 0.4).
- REJECT DIPS IF: "Panic Dump" detected (Buy/Sell Ratio < 0.2 OR Crash > 60%%).
- DO NOT AVERAGE. If a critical pillar fails, the WHOLE PROJECT FAILS.

TASK:
- Calculate a "Realistic Potential Market Cap" (usd) based on quality/hype.
- If grade < 80, set potential_mc to 0.

RETURN JSON ONLY:
{
  "grade_score": number (0-100),
  "decision": "WATCH" | "IGNORE",
  "reasoning": "Brief explanation of grade (Mention the fatal flaw if low)",
  "potential_mc": number (Estimated Peak USD Market Cap, e.g. 500000)
}

DATA:
%s
`, string(blob))
}
