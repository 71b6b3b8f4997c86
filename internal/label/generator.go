package label

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MinAvailableArtists is the floor of unsigned artists the pool keeps
// topped up to.
const MinAvailableArtists = 10

var artistFirstNames = []string{"Maya", "Juno", "Ezra", "Tala", "Rico", "Wren", "Kofi", "Suki", "Dante", "Lyra", "Niko", "Opal", "Cassius", "Indie", "Remy", "Sable", "Theo", "Vada", "Knox", "Zora"}
var artistLastNames = []string{"Vega", "Holloway", "Kaine", "Mercer", "Okafor", "Strand", "Valentine", "Iwata", "Cruz", "Ashby", "Delacroix", "Nyx", "Park", "Quill", "Rouge", "Sato", "Thorn", "Ume", "Wilder", "Zhou"}
var genres = []string{"indie rock", "synthpop", "hip hop", "folk", "jazz fusion", "metal", "r&b", "electronic", "country", "punk"}
var traitNames = []string{"discipline", "charisma", "creativity", "resilience", "stage_presence"}

var venueNamePrefixes = []string{"The Velvet", "Neon", "Iron", "Golden", "Echo", "Midnight", "Crimson", "Silver", "Electric", "Hollow"}
var venueNameSuffixes = []string{"Room", "Hall", "Foundry", "Garden", "Theatre", "Cellar", "Pavilion", "Arena", "Lounge", "Amphitheatre"}

type artistSpec struct {
	Name             string
	Genre            string
	Talent           int
	RequiredLevel    int
	Traits           map[string]int
	SigningCostCents int64
}

// artistCandidates builds a deterministic batch of signable artists. The
// index offset keeps successive top-ups from repeating names.
func (s *Service) artistCandidates(count, offset int) []artistSpec {
	out := make([]artistSpec, 0, count)
	for i := 0; i < count; i++ {
		n := offset + i
		talentVal := 30 + s.nextIntn(61) // 30-90
		requiredLevel := 1 + n%5
		traits := make(map[string]int, 2)
		traits[traitNames[n%len(traitNames)]] = 40 + s.nextIntn(50)
		traits[traitNames[(n*3+1)%len(traitNames)]] = 20 + s.nextIntn(50)

		cost, err := SigningCost(talentVal, requiredLevel)
		if err != nil {
			s.log.Warn("signing cost fallback", "talent", talentVal, "required_level", requiredLevel, "err", err)
		}
		out = append(out, artistSpec{
			Name:             fmt.Sprintf("%s %s", artistFirstNames[n%len(artistFirstNames)], artistLastNames[(n*7)%len(artistLastNames)]),
			Genre:            genres[(n*3)%len(genres)],
			Talent:           talentVal,
			RequiredLevel:    requiredLevel,
			Traits:           traits,
			SigningCostCents: cost,
		})
	}
	return out
}

// MaintainArtistPool tops the unsigned pool back up to MinAvailableArtists.
// Returns how many artists were created.
func (s *Service) MaintainArtistPool(ctx context.Context) (int, error) {
	var created int
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		created = 0
		var available, total int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FILTER (WHERE manager_user_id IS NULL), count(*)
			FROM label.artists
		`).Scan(&available, &total); err != nil {
			return err
		}
		if available >= MinAvailableArtists {
			return nil
		}
		for _, spec := range s.artistCandidates(MinAvailableArtists-available, total) {
			traitsRaw, err := json.Marshal(spec.Traits)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO label.artists
				    (public_id, name, genre, talent, skill, popularity, energy, max_energy,
				     required_level, signing_cost_cents, traits)
				VALUES ($1, $2, $3, $4, 0, $5, 100, 100, $6, $7, $8)
			`, uuid.NewString(), spec.Name, spec.Genre, spec.Talent,
				5+s.nextIntn(16), spec.RequiredLevel, spec.SigningCostCents, traitsRaw); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.log.Info("artist pool topped up", "created", created)
	}
	return created, nil
}

type venueSpec struct {
	Name             string
	Genre            string
	Capacity         int
	BookingCostCents int64
	Prestige         int
	Tier             int
}

// venueCatalog spreads ~25 venues across the five tiers, with capacity,
// booking cost, and prestige scaling together.
func (s *Service) venueCatalog(target int) []venueSpec {
	out := make([]venueSpec, 0, target)
	for i := 0; i < target; i++ {
		tier := 1 + i%MaxVenueTier
		capacity := tier*150 + s.nextIntn(tier*100)
		bookingDollars := int64(tier*tier*100 + s.nextIntn(tier*80))
		prestige := tier*2 - 1 + s.nextIntn(2) // 1-2, 3-4, ... 9-10
		out = append(out, venueSpec{
			Name:             fmt.Sprintf("%s %s", venueNamePrefixes[(i*3)%len(venueNamePrefixes)], venueNameSuffixes[i%len(venueNameSuffixes)]),
			Genre:            genres[(i*7)%len(genres)],
			Capacity:         capacity,
			BookingCostCents: bookingDollars * CentsPerDollar,
			Prestige:         prestige,
			Tier:             tier,
		})
	}
	return out
}

// SeedVenues populates the active season's venue list up to target.
// Idempotent: seasons that already have venues are left alone.
func (s *Service) SeedVenues(ctx context.Context, target int) (int, error) {
	if target <= 0 {
		target = 25
	}
	seasonID, err := s.ActiveSeasonID(ctx)
	if err != nil {
		return 0, err
	}
	var created int
	err = s.runTx(ctx, func(tx pgx.Tx) error {
		created = 0
		var existing int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM label.venues WHERE season_id = $1`, seasonID).Scan(&existing); err != nil {
			return err
		}
		if existing >= target {
			return nil
		}
		for _, spec := range s.venueCatalog(target - existing) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO label.venues
				    (public_id, season_id, name, genre, capacity, booking_cost_cents, prestige, tier)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, uuid.NewString(), seasonID, spec.Name, spec.Genre, spec.Capacity,
				spec.BookingCostCents, spec.Prestige, spec.Tier); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.log.Info("venues seeded", "season_id", seasonID, "created", created)
	}
	return created, nil
}
