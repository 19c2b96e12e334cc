package membership

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type tierSeedFile struct {
	Tiers []struct {
		Code         string `yaml:"code"`
		Name         string `yaml:"name"`
		Level        int    `yaml:"level"`
		DiscountRate int    `yaml:"discount_rate"`
		Disabled     bool   `yaml:"disabled"`
		SortOrder    int    `yaml:"sort_order"`
	} `yaml:"tiers"`
}

// ParseTierSeed reads the tiers section of a seed file.
func ParseTierSeed(r io.Reader) ([]*Tier, error) {
	var file tierSeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse tier seed: %w", err)
	}

	tiers := make([]*Tier, 0, len(file.Tiers))
	for _, st := range file.Tiers {
		if st.Code == "" {
			return nil, fmt.Errorf("tier seed: code is required")
		}
		if st.DiscountRate < 0 || st.DiscountRate > 100 {
			return nil, fmt.Errorf("tier %s: discount_rate must be within 0..100", st.Code)
		}
		t := &Tier{
			ID:           uuid.NewString(),
			Code:         st.Code,
			Level:        st.Level,
			DiscountRate: st.DiscountRate,
			Disabled:     st.Disabled,
			SortOrder:    st.SortOrder,
		}
		if st.Name != "" {
			name := st.Name
			t.Name = &name
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// SeedTiers upserts tiers by code.
func SeedTiers(ctx context.Context, repo Repository, tiers []*Tier) (int, error) {
	for i, t := range tiers {
		if err := repo.UpsertTier(ctx, t); err != nil {
			return i, err
		}
	}
	return len(tiers), nil
}
