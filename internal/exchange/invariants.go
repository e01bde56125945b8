package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// CheckInvariants re-verifies the conservation laws the engine is supposed
// to maintain. A non-nil return is a programming error, not a client
// error: settlement has corrupted the books.
//
// Checked:
//   - no agent has a negative balance or reserve, and no reserve exceeds
//     the balance backing it
//   - each agent's reserve equals the sum of its open buy orders' escrow
//   - per company, holdings across all agents sum to the share supply
//     (zero once bankrupt)
//   - no portfolio carries a zero or negative position
func (e *Exchange) CheckInvariants() error {
	reserved := make(map[string]decimal.Decimal, len(e.agents))
	for _, o := range e.orders {
		if o.Side == types.BUY && o.Open() {
			reserved[o.AgentID] = reserved[o.AgentID].Add(o.Reserved)
		}
	}

	for id, a := range e.agents {
		if a.Balance.IsNegative() {
			return fmt.Errorf("agent %s: negative balance %s", id, a.Balance)
		}
		if a.Reserved.IsNegative() {
			return fmt.Errorf("agent %s: negative reserve %s", id, a.Reserved)
		}
		if a.Reserved.GreaterThan(a.Balance) {
			return fmt.Errorf("agent %s: reserve %s exceeds balance %s", id, a.Reserved, a.Balance)
		}
		if !a.Reserved.Equal(reserved[id]) {
			return fmt.Errorf("agent %s: reserve %s does not match open buy escrow %s", id, a.Reserved, reserved[id])
		}
		for ticker, qty := range a.Portfolio {
			if !qty.IsPositive() {
				return fmt.Errorf("agent %s: non-positive position %s %s", id, qty, ticker)
			}
		}
	}

	for ticker, c := range e.companies {
		held := decimal.Zero
		for _, a := range e.agents {
			held = held.Add(a.Portfolio.Get(ticker))
		}
		want := c.TotalShares
		if c.Status == types.CompanyBankrupt {
			want = decimal.Zero
		}
		if !held.Equal(want) {
			return fmt.Errorf("company %s: %s shares held, supply is %s", ticker, held, want)
		}
	}

	return nil
}
