package domain

import "strings"

// DefaultQuoteAsset is appended to crypto symbols that do not already
// name a quote asset.
const DefaultQuoteAsset = "USDT"

// quoteAssets are the suffixes recognized as an explicit quote asset.
var quoteAssets = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH", "BNB"}

// NormalizeEquity maps a user-supplied stock ticker to its canonical
// spelling: trimmed and uppercased.
func NormalizeEquity(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeCrypto maps any spelling of a crypto pair ("btc-usdt",
// "BTC/USDT", " btcusdt ") to one canonical instrument id. Symbols
// without a recognized quote asset get DefaultQuoteAsset appended
// ("SOL" -> "SOLUSDT"). Idempotent: a canonical id maps to itself.
func NormalizeCrypto(raw string) string {
	cleaned := NormalizeEquity(raw)
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "/", "")
	for _, quote := range quoteAssets {
		if strings.HasSuffix(cleaned, quote) {
			return cleaned
		}
	}
	return cleaned + DefaultQuoteAsset
}
