package services

import "github.com/dmitrijs2005/photorestore/internal/server/models"

var catalog = []models.Plan{
	{
		ID:          "club",
		PriceID:     "price_1Rhx8jCh9fXxDoBAMfjtb52f",
		Name:        "Restorer Club Membership",
		Description: "Five photo restorations every month, the lowest price per extra photo, top priority and round-the-clock support.",
		PriceCents:  990,
		Currency:    "usd",
		Mode:        models.PlanModeSubscription,
		Credits:     5,
		Popular:     true,
		Features:    []string{"5 free photos every month", "Extra photos for only $0.15", "Top priority", "24/7 support", "Monthly updates"},
	},
	{
		ID:          "pack10",
		PriceID:     "price_1RhwV0Ch9fXxDoBAZZaFGCgo",
		Name:        "10 Restorations Pack",
		Description: "For family collections and larger projects: ten high quality restorations at $0.99 each with priority support.",
		PriceCents:  990,
		Currency:    "usd",
		Mode:        models.PlanModePayment,
		Credits:     10,
		Features:    []string{"10 high resolution photos", "Only $0.99 per photo", "Priority support", "Instant download"},
	},
	{
		ID:          "single",
		PriceID:     "price_1RhwMUCh9fXxDoBAM5kWzRyI",
		Name:        "Single Photo Restoration",
		Description: "A complete restoration of one photograph, delivered in high quality and ready to download.",
		PriceCents:  190,
		Currency:    "usd",
		Mode:        models.PlanModePayment,
		Credits:     1,
		Features:    []string{"1 high resolution photo", "Instant download", "Email support"},
	},
	{
		ID:          "welcome",
		PriceID:     "price_1Rhw8SCh9fXxDoBAYP4JSIV9",
		Name:        "Welcome Offer: Photo Restoration",
		Description: "Special offer for new users: damage repair, colorization and upscaling of one image.",
		PriceCents:  100,
		Currency:    "usd",
		Mode:        models.PlanModePayment,
		Credits:     1,
		Features:    []string{"1 high resolution photo", "Special offer for new users", "Instant download", "Email support"},
	},
}

// Plans returns a copy of the catalog in display order.
func Plans() []models.Plan {
	out := make([]models.Plan, len(catalog))
	copy(out, catalog)
	return out
}

// FindPlan looks a plan up by its ID or its price ID.
func FindPlan(id string) (models.Plan, bool) {
	for _, p := range catalog {
		if p.ID == id || p.PriceID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}
