package booking

import (
	"fmt"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/availability"
	"ground-booking-backend/internal/model"
)

// CatalogsFrom starts from the default catalogs and applies the per-ground
// overrides of cfg.
func CatalogsFrom(grounds map[string]config.GroundConfig) (map[model.GroundType]availability.Catalog, error) {
	catalogs := availability.DefaultCatalogs()
	for name, gc := range grounds {
		ground, ok := model.ParseGroundType(name)
		if !ok {
			return nil, fmt.Errorf("unknown ground %q in booking.grounds", name)
		}
		if len(gc.Slots) == 0 {
			return nil, fmt.Errorf("ground %q has no slots", name)
		}
		seen := make(map[string]bool, len(gc.Slots)+1)
		for _, s := range append(append([]string{}, gc.Slots...), gc.FullDay) {
			if s == "" {
				continue
			}
			if seen[s] {
				return nil, fmt.Errorf("ground %q lists slot %q twice", name, s)
			}
			seen[s] = true
		}
		catalogs[ground] = availability.Catalog{Ground: ground, Slots: gc.Slots, FullDay: gc.FullDay}
	}
	return catalogs, nil
}
