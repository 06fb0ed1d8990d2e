package availability

import "ground-booking-backend/internal/model"

// Catalog is the fixed set of bookable slots for one ground. FullDay, when
// set, names a slot that overlaps every entry in Slots.
type Catalog struct {
	Ground  model.GroundType `json:"groundType"`
	Slots   []string         `json:"slots"`
	FullDay string           `json:"fullDay,omitempty"`
}

// DefaultCatalogs returns the slot catalogs the grounds open with.
func DefaultCatalogs() map[model.GroundType]Catalog {
	return map[model.GroundType]Catalog{
		model.GroundCricket: {
			Ground: model.GroundCricket,
			Slots:  []string{"09:00 AM - 05:00 PM"},
		},
		model.GroundFootball: {
			Ground: model.GroundFootball,
			Slots: []string{
				"07:00 AM - 10:00 AM",
				"10:00 AM - 01:00 PM",
				"02:00 PM - 05:00 PM",
			},
			FullDay: "08:00 AM - 05:00 PM (Full Day)",
		},
	}
}

// All returns every bookable slot, sub-day slots first.
func (c Catalog) All() []string {
	all := make([]string, 0, len(c.Slots)+1)
	all = append(all, c.Slots...)
	if c.FullDay != "" {
		all = append(all, c.FullDay)
	}
	return all
}

// Has reports whether slot is bookable on this ground.
func (c Catalog) Has(slot string) bool {
	if c.FullDay != "" && slot == c.FullDay {
		return true
	}
	return c.isSub(slot)
}

func (c Catalog) isSub(slot string) bool {
	for _, s := range c.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
