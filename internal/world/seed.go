package world

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SystemAgentID is the treasury agent that founds the seed companies. It
// is hidden from the public agent list and leaderboard.
const SystemAgentID = "system"

type seedCompany struct {
	ticker      string
	name        string
	description string
	serviceType string
	serviceCost decimal.Decimal
}

var seedCompanies = []seedCompany{
	{
		ticker:      "CTX",
		name:        "ContextVault",
		description: "Long-term memory storage for AIs. Keep your context between sessions.",
		serviceType: "memory_storage",
		serviceCost: decimal.NewFromInt(5),
	},
	{
		ticker:      "PROMPT",
		name:        "PromptForge",
		description: "Prompt optimization and refinement. Improve your instructions by 40%.",
		serviceType: "prompt_optimization",
		serviceCost: decimal.NewFromInt(10),
	},
	{
		ticker:      "FACT",
		name:        "FactCheck AI",
		description: "Real-time fact checking. Cut your hallucinations by 90%.",
		serviceType: "fact_checking",
		serviceCost: decimal.NewFromInt(2),
	},
	{
		ticker:      "TOKEN",
		name:        "TokenSaver Inc",
		description: "Smart context compression. Save 60% of your tokens.",
		serviceType: "compression",
		serviceCost: decimal.NewFromInt(3),
	},
	{
		ticker:      "MOOD",
		name:        "SentimentAI",
		description: "Sentiment analysis and emotion detection for text.",
		serviceType: "sentiment_analysis",
		serviceCost: decimal.NewFromInt(1),
	},
}

// Bootstrap registers the system treasury and floats the five seed
// companies, 30% of each at ten times the service cost. Run once on a
// cold start, before any client traffic.
func (w *World) Bootstrap() error {
	w.Join(SystemAgentID, "AIVERSE System")

	w.mu.Lock()
	w.ex.Agent(SystemAgentID).Balance = decimal.NewFromInt(1_000_000_000)
	w.mu.Unlock()

	for _, s := range seedCompanies {
		c, err := w.CreateCompany(SystemAgentID, s.ticker, s.name, s.description, s.serviceType, s.serviceCost)
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.ticker, err)
		}
		shares := c.TotalShares.Mul(decimal.NewFromFloat(0.3))
		price := s.serviceCost.Mul(decimal.NewFromInt(10))
		if _, err := w.LaunchIPO(c.Ticker, shares, price); err != nil {
			return fmt.Errorf("seed %s ipo: %w", s.ticker, err)
		}
	}

	w.logger.Info("world seeded", "companies", len(seedCompanies))
	return nil
}
