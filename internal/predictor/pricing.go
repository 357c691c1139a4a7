package predictor

// Per-prediction prices, fixed at submission time.
var prices = map[string]float64{
	"lr_model": 10,
	"gb_model": 20,
}

// Price returns the credit cost of one prediction with the named model.
func Price(model string) (float64, bool) {
	p, ok := prices[model]
	return p, ok
}

// Prices returns a copy of the full price table (used by the front end).
func Prices() map[string]float64 {
	out := make(map[string]float64, len(prices))
	for k, v := range prices {
		out[k] = v
	}
	return out
}
