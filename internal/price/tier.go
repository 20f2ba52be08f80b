package price

// Tier classifies a current price against its 30-day history.
type Tier int

const (
	Bargain Tier = iota
	TypicalBuy
	RipOff
)

func (t Tier) String() string {
	switch t {
	case Bargain:
		return "BARGAIN"
	case TypicalBuy:
		return "TYPICAL BUY"
	default:
		return "RIP-OFF"
	}
}

// MarshalText lets tiers encode as their label in JSON.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Classify maps a 30-day percentile to a tier. Boundaries belong to the lower tier.
func Classify(percentile30 float64) Tier {
	switch {
	case percentile30 <= 20:
		return Bargain
	case percentile30 <= 80:
		return TypicalBuy
	default:
		return RipOff
	}
}
