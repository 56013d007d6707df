package processors

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/parsers"
	"github.com/username/blackledger/backend/src/utils"
)

// Every observed currency counts toward the reconcilable total: the provider
// may report more than one active balance bucket per account and all of them
// are treated as available funds.

// cashbackProbePaths are the known locations for the provider's global
// cashback figure, in priority order. The figure is not attached to any
// single account, so it is probed on the raw top-level response.
var cashbackProbePaths = [][]string{
	{"cashback"},
	{"meta", "cashback"},
	{"summary", "cashback"},
	{"data", "cashback"},
	{"links", "cashback"},
}

// maxCashbackSearchDepth bounds the fallback search over the raw response.
const maxCashbackSearchDepth = 3

var two = decimal.NewFromInt(2)

// Aggregate groups observations by normalized currency label, locates the
// global cashback figure in the raw response, and applies the 50% split rule.
// A zero total is a legitimate state: the result carries NoBalanceFound and
// callers must treat it as a successful sync with a warning.
func Aggregate(observations []models.BalanceObservation, raw interface{}) models.AggregateResult {
	perCurrency := map[string]decimal.Decimal{}
	totalBalance := decimal.Zero

	for _, obs := range observations {
		if !obs.Amount.IsPositive() {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(obs.CurrencyLabel))
		perCurrency[label] = perCurrency[label].Add(obs.Amount)
		totalBalance = totalBalance.Add(obs.Amount)
	}

	cashback := locateGlobalCashback(raw)
	totalAvailable := totalBalance.Add(cashback)
	splitAmount := utils.Round2(totalAvailable.Div(two))

	return models.AggregateResult{
		PerCurrencyTotals: perCurrency,
		TotalBalance:      totalBalance,
		GlobalCashback:    cashback,
		TotalAvailable:    totalAvailable,
		SplitAmount:       splitAmount,
		NoBalanceFound:    totalAvailable.IsZero(),
	}
}

// locateGlobalCashback probes the known locations first, then falls back to a
// bounded recursive search for any cashback-alias key with a positive value.
// The first positive match wins; finding nothing means zero, not an error.
func locateGlobalCashback(raw interface{}) decimal.Decimal {
	for _, path := range cashbackProbePaths {
		if v, ok := valueAtPath(raw, path); ok {
			if d, numeric := utils.CoerceDecimal(v); numeric && d.IsPositive() {
				return d
			}
		}
	}
	if d, found := searchCashback(raw, 0); found {
		return d
	}
	return decimal.Zero
}

func valueAtPath(raw interface{}, path []string) (interface{}, bool) {
	current := raw
	for _, key := range path {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, present := lookupFoldAny(node, key)
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

func searchCashback(node interface{}, depth int) (decimal.Decimal, bool) {
	if depth >= maxCashbackSearchDepth {
		return decimal.Zero, false
	}
	switch n := node.(type) {
	case map[string]interface{}:
		for _, alias := range parsers.CashbackAliases {
			if v, present := lookupFoldAny(n, alias); present {
				if d, numeric := utils.CoerceDecimal(v); numeric && d.IsPositive() {
					return d, true
				}
			}
		}
		for _, value := range n {
			if d, found := searchCashback(value, depth+1); found {
				return d, true
			}
		}
	case []interface{}:
		for _, value := range n {
			if d, found := searchCashback(value, depth+1); found {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func lookupFoldAny(node map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := node[key]; ok {
		return v, true
	}
	for k, v := range node {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
