package parsers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/utils"
)

// The provider's response shape is undocumented and drifts between versions.
// The flattener does not assume any schema; it walks the decoded value and
// emits an observation from every object that carries both a recognizable
// currency label and a recognizable amount. Alias lists are data so a new
// provider field name is a one-line change.
var (
	currencyAliases = []string{"currency", "asset", "symbol", "coin", "currency_id", "currency_code", "ccy"}
	amountAliases   = []string{"balance", "available", "amount", "total", "available_balance", "value"}

	// CashbackAliases is shared with the aggregator's global cashback search.
	CashbackAliases = []string{"cashback_balance", "cashback", "rewards", "bonus"}
)

// maxFlattenDepth bounds the walk so a pathological payload cannot recurse
// indefinitely. Nodes at this depth are not traversed.
const maxFlattenDepth = 5

// DecodeBalancePayload decodes an arbitrary provider response body. Numbers
// are kept as json.Number so amounts round-trip into decimals without float
// damage.
func DecodeBalancePayload(r io.Reader) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding balance payload: %w", err)
	}
	return root, nil
}

// FlattenBalances walks the decoded payload depth-first and returns every
// balance observation found. A node that cannot be interpreted is skipped,
// never aborting the walk; an empty result is a legitimate outcome, not an
// error.
func FlattenBalances(root interface{}) []models.BalanceObservation {
	observations := []models.BalanceObservation{}
	walk(root, "$", 0, &observations)
	return observations
}

func walk(node interface{}, path string, depth int, out *[]models.BalanceObservation) {
	if depth >= maxFlattenDepth {
		return
	}
	switch n := node.(type) {
	case map[string]interface{}:
		if obs, ok := observationFrom(n, path); ok {
			*out = append(*out, obs)
		}
		// Keep descending even after emitting: accounts may nest sub-balances.
		for key, value := range n {
			walk(value, path+"."+key, depth+1, out)
		}
	case []interface{}:
		for i, value := range n {
			walk(value, fmt.Sprintf("%s[%d]", path, i), depth+1, out)
		}
	}
}

// observationFrom inspects a single object node for a currency alias and an
// amount alias. The amount must parse as a non-negative number; otherwise the
// node is not an observation.
func observationFrom(node map[string]interface{}, path string) (models.BalanceObservation, bool) {
	label, ok := currencyLabelFrom(node)
	if !ok {
		return models.BalanceObservation{}, false
	}

	var amountFound bool
	var amount decimal.Decimal
	for _, alias := range amountAliases {
		raw, present := lookupFold(node, alias)
		if !present {
			continue
		}
		d, numeric := utils.CoerceDecimal(raw)
		if !numeric || d.IsNegative() {
			continue
		}
		amount = d
		amountFound = true
		break
	}
	if !amountFound {
		return models.BalanceObservation{}, false
	}

	obs := models.BalanceObservation{
		CurrencyLabel: label,
		Amount:        amount,
		SourcePath:    path,
	}
	for _, alias := range CashbackAliases {
		if raw, present := lookupFold(node, alias); present {
			if d, numeric := utils.CoerceDecimal(raw); numeric {
				obs.CashbackAmount = &d
				break
			}
		}
	}
	return obs, true
}

// currencyLabelFrom accepts string labels and numeric currency identifiers;
// numeric identifiers are carried as opaque labels, mapping them to a meaning
// is not the flattener's job.
func currencyLabelFrom(node map[string]interface{}) (string, bool) {
	for _, alias := range currencyAliases {
		raw, present := lookupFold(node, alias)
		if !present {
			continue
		}
		switch v := raw.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed, true
			}
		case json.Number:
			return v.String(), true
		case float64:
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

// lookupFold finds a key case-insensitively.
func lookupFold(node map[string]interface{}, key string) (interface{}, bool) {
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
