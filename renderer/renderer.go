// Package renderer turns analysis results into markdown reports.
package renderer

import (
	"bytes"
	"fmt"
	"sort"

	money "github.com/Rhymond/go-money"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
)

// Money formats a decimal amount in the given currency, using the
// currency's grapheme and fraction rules ("$1,234.56").
func Money(v decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		c = money.GetCurrency(tracker.BaseCurrency)
	}
	minor := v.Shift(int32(c.Fraction)).Round(0)
	return money.New(minor.IntPart(), c.Code).Display()
}

// PortfolioMarkdown renders a single account analysis.
func PortfolioMarkdown(name string, p *tracker.AnalyzedPortfolio, rate decimal.Decimal, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2(fmt.Sprintf("Account %s", name))

	conv := func(v decimal.Decimal) string { return Money(v.Mul(rate), currency) }

	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Portfolio Value"), md.Bold(conv(p.CurrentPortfolioValue))},
		Rows: [][]string{
			{"Invested", conv(p.TotalInvested)},
			{"Withdrawn", conv(p.TotalWithdrawn)},
			{"Dividends", conv(p.TotalDividends)},
			{"Gain", fmt.Sprintf("%s (%s)", conv(p.PortfolioGainValue), p.PortfolioGain)},
			{"Modified Dietz", p.ModifiedDietzYield.String()},
			{"Annualized", p.AnnualizedYield.String()},
		},
	})

	if len(p.Symbols) > 0 {
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
			Header:    []string{"Symbol", "Shares", "Avg Price"},
		}
		for _, sym := range p.Symbols {
			table.Rows = append(table.Rows, []string{
				sym,
				p.Shares[sym].String(),
				conv(p.AvgPPS[sym]),
			})
		}
		doc.Table(table)
	}

	if len(p.MissingPrices) > 0 {
		doc.PlainText(fmt.Sprintf("No current price for: %v. Their market value is excluded.", p.MissingPrices))
	}

	return doc.String()
}

// UserMarkdown renders the full per-account report with the aggregate first.
func UserMarkdown(u *tracker.UserPortfolio) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio Report (%s %s)", u.Currency.Symbol, u.Currency.Code))

	if _, ok := u.PerAccount[tracker.AggregateID]; ok {
		agg := u.Aggregate()
		doc.PlainText(PortfolioMarkdown(tracker.AggregateID, &agg, u.Rate, u.Currency.Code))
	}

	names := make([]string, 0, len(u.PerAccount))
	for name := range u.PerAccount {
		if name != tracker.AggregateID {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if meta, ok := u.Accounts[name]; ok && meta.Description != "" {
			doc.PlainText(meta.Description)
		}
		p := u.PerAccount[name]
		doc.PlainText(PortfolioMarkdown(name, &p, u.Rate, u.Currency.Code))
	}

	return doc.String()
}
