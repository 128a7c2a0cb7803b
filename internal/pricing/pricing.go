// Package pricing holds the static credit catalog. Packs are configuration,
// not database rows; purchasing is not wired to persistence.
package pricing

const (
	// FreeSignupCredits is granted once when an account is created.
	FreeSignupCredits = 10

	// CreditsPerImage is the fixed cost of one generation.
	CreditsPerImage = 1
)

type CreditPack struct {
	ID          string
	Name        string
	Credits     int
	Price       int // FCFA
	Description string
	Popular     bool
}

var CreditPacks = []CreditPack{
	{
		ID:          "discovery",
		Name:        "Pack Découverte",
		Credits:     100,
		Price:       1500,
		Description: "Parfait pour commencer vos créations",
	},
	{
		ID:          "creator",
		Name:        "Pack Créateur",
		Credits:     500,
		Price:       6000,
		Description: "Pour les créateurs réguliers",
		Popular:     true,
	},
	{
		ID:          "pro",
		Name:        "Pack Pro",
		Credits:     1500,
		Price:       15000,
		Description: "Pour les utilisateurs intensifs",
	},
}

func PackByID(id string) (CreditPack, bool) {
	for _, pack := range CreditPacks {
		if pack.ID == id {
			return pack, true
		}
	}
	return CreditPack{}, false
}

func PricePerCredit(pack CreditPack) float64 {
	if pack.Credits == 0 {
		return 0
	}
	return float64(pack.Price) / float64(pack.Credits)
}
