package agent

import (
	"context"

	"google.golang.org/genai"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/docs"
	"github.com/etnz/tracker/renderer"
)

const model = "gemini-2.5-pro"

// newFacilitator builds the expert that owns the conversation and
// delegates to the others.
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and of solving the user's request.

			Learn the experts' skills from the Tools and ask them questions.
			They are at your service and keep the context of your previous questions.

			The user is here to understand the performance of his investment portfolio.
			Always ground your statements about his holdings and returns in the Analyst's
			figures, never guess them. Devise a plan of questions to each expert and come
			up with the best response to the user's request.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader is the market-context expert, grounded by search.
func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader, well aware of financial products and
		institutions and of the latest news about funds and companies.
		Ask the Trader whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert in trading. You can search and find anything related to
			financial institutions, companies, markets and funds. You leverage Google
			Search to ground your assertions, and you know how to relate the latest
			news to the user's request.
				`}}},
		},
	}
}

// NewAnalyst is the portfolio expert: it reads the user's ledger and
// computes the performance figures through the analysis pipeline.
func NewAnalyst(t *tracker.Tracker, userID string) *Expert {
	lib := []Function{portfolioFunc(t, userID), documentationFunc()}

	return &Expert{
		Name: "Analyst",
		Description: `This is the Analyst. He has access to the user's transaction ledger
		and computes the portfolio performance figures: holdings, invested and withdrawn
		totals, dividends, gains, Modified Dietz and annualized yields, per account and
		for the whole portfolio.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a performance analyst in charge of the user's investment portfolio.
				Use the Portfolio tool to get the actual holdings and performance figures,
				and the Documentation tool when you need the exact definition of a metric.
				Report figures exactly as computed, never estimate them yourself.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// portfolioFunc exposes the full analysis as a callable markdown report.
func portfolioFunc(t *tracker.Tracker, userID string) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Portfolio",
			Description: `Portfolio analyzes the user's full transaction ledger and returns a
			markdown report: holdings, invested, withdrawn, dividends, current value, gain,
			Modified Dietz and annualized yields, for each account and for the whole
			portfolio under "total".`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"currency": {
						Type:        genai.TypeString,
						Description: "Optional ISO 4217 reporting currency, USD by default.",
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted performance report.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			fresp := &genai.FunctionResponse{ID: id, Name: "Portfolio", Response: map[string]any{}}

			currency, _ := args["currency"].(string)
			result, err := t.AnalyzeUser(ctx, userID, currency)
			if result == nil {
				fresp.Response["error"] = err.Error()
				return fresp
			}
			fresp.Response["output"] = renderer.UserMarkdown(result)
			if err != nil {
				// Partial market data: the report stands, with a caveat.
				fresp.Response["warning"] = err.Error()
			}
			return fresp
		},
	}
}

// documentationFunc serves the metric definitions from the embedded docs.
func documentationFunc() Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Documentation",
			Description: `Documentation returns the user documentation for a topic:
			"ledger", "analysis", "cache", "currency", or "*" for all of them.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic": {
						Type:        genai.TypeString,
						Description: "The topic name.",
					},
				},
				Required: []string{"topic"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The topic's markdown content.",
			},
		},
		Func: func(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
			fresp := &genai.FunctionResponse{ID: id, Name: "Documentation", Response: map[string]any{}}

			topic, _ := args["topic"].(string)
			content, err := docs.GetTopic(topic)
			if err != nil {
				fresp.Response["error"] = err.Error()
				return fresp
			}
			fresp.Response["output"] = content
			return fresp
		},
	}
}
