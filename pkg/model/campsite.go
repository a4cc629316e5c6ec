package model

type AccommodationType struct {
	ID            AccommodationTypeID `json:"id"`
	CampsiteID    CampsiteID          `json:"campsite_id"`
	Name          string              `json:"name"`
	PricePerNight Money               `json:"price_per_night"`
	CleaningFee   Money               `json:"cleaning_fee"`
	Capacity      int                 `json:"capacity"`
}

// AccommodationSpot is a bookable unit of a given type at a campsite.
type AccommodationSpot struct {
	ID         AccommodationSpotID `json:"id"`
	CampsiteID CampsiteID          `json:"campsite_id"`
	Type       AccommodationType   `json:"type"`
	Label      string              `json:"label"`
	Active     bool                `json:"active"`
}

type Pricing struct {
	NightlyRate Money `json:"nightly_rate"`
	Nights      int   `json:"nights"`
	Base        Money `json:"base"`
	Total       Money `json:"total"`
}

// Quote prices a stay: the base is the nightly rate times the nights, the
// total adds the one-off cleaning fee.
func (t AccommodationType) Quote(period DateRange) (Pricing, error) {
	base, err := t.PricePerNight.Multiply(period.Nights())
	if err != nil {
		return Pricing{}, err
	}

	total := base
	if !t.CleaningFee.IsZero() {
		if total, err = base.Add(t.CleaningFee); err != nil {
			return Pricing{}, err
		}
	}

	return Pricing{
		NightlyRate: t.PricePerNight,
		Nights:      period.Nights(),
		Base:        base,
		Total:       total,
	}, nil
}
