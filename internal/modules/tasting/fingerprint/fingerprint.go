package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
)

// Normalized is the canonical projection of a request that the fingerprint is computed over.
// Field order here is the serialization order.
type Normalized struct {
	Occasion          string   `json:"occasion"`
	FoodPairing       string   `json:"foodPairing"`
	RegionPreferences []string `json:"regionPreferences"`
	BudgetMin         float64  `json:"budgetMin"`
	BudgetMax         float64  `json:"budgetMax"`
	Currency          string   `json:"currency"`
	WineCount         int      `json:"wineCount"`
	SpecialRequest    string   `json:"specialRequest"`
}

func normText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize lowercases and trims free text, sorts regions and keeps numbers verbatim.
// The caller tier is deliberately excluded so every tier shares cache entries.
func Normalize(req tasting.GenerationRequest) Normalized {
	regions := make([]string, 0, len(req.RegionPreferences))
	for _, r := range req.RegionPreferences {
		if n := normText(r); n != "" {
			regions = append(regions, n)
		}
	}
	sort.Strings(regions)
	return Normalized{
		Occasion:          string(req.Occasion),
		FoodPairing:       normText(req.FoodPairing),
		RegionPreferences: regions,
		BudgetMin:         req.BudgetMin,
		BudgetMax:         req.BudgetMax,
		Currency:          req.CurrencyOrDefault(),
		WineCount:         req.WineCount,
		SpecialRequest:    normText(req.SpecialRequest),
	}
}

// JSON is the deterministic serialization hashed by Compute. HTML escaping is off so
// the stored normalized request stays readable ("&" rather than "\u0026").
func (n Normalized) JSON() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a flat struct of strings and numbers cannot fail.
	_ = enc.Encode(n)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// Compute returns the lowercase hex SHA-256 of the normalized request.
func Compute(req tasting.GenerationRequest) string {
	sum := sha256.Sum256(Normalize(req).JSON())
	return hex.EncodeToString(sum[:])
}
