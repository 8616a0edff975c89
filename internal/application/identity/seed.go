package identity

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"pm-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed default_grants.yaml
var defaultGrants []byte

// GrantSeed is the YAML shape: role -> module -> actions.
type GrantSeed struct {
	Grants map[string]map[string][]string `yaml:"grants"`
}

// LoadGrantSeed reads path, or the embedded defaults when path is empty.
func LoadGrantSeed(path string) (*GrantSeed, error) {
	data := defaultGrants
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read grant seed: %w", err)
		}
		data = b
	}
	return ParseGrantSeed(data)
}

// ParseGrantSeed decodes and validates a grant seed document.
func ParseGrantSeed(data []byte) (*GrantSeed, error) {
	var seed GrantSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse grant seed: %w", err)
	}
	for _, in := range seed.inputs() {
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("grant seed %s/%s/%s: %w", in.Role, in.Module, in.Action, err)
		}
	}
	return &seed, nil
}

// inputs flattens the seed in a stable order.
func (s *GrantSeed) inputs() []GrantInput {
	var out []GrantInput
	roles := make([]string, 0, len(s.Grants))
	for r := range s.Grants {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, role := range roles {
		modules := make([]string, 0, len(s.Grants[role]))
		for m := range s.Grants[role] {
			modules = append(modules, m)
		}
		sort.Strings(modules)
		for _, module := range modules {
			for _, action := range s.Grants[role][module] {
				out = append(out, GrantInput{Role: role, Module: module, Action: action})
			}
		}
	}
	return out
}

// SeedGrants inserts the seed's grants that are not stored yet and returns how many were created.
func SeedGrants(ctx context.Context, db *gorm.DB, seed *GrantSeed) (int, error) {
	svc := &Service{DB: db}
	created := 0
	for _, in := range seed.inputs() {
		_, ok, err := svc.GrantPermission(ctx, in)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	log.Info().Int("created", created).Msg("identity: permission grants seeded")
	return created, nil
}

// SeedIfEmpty seeds only when no grant rows exist yet, so revoked defaults stay revoked across restarts.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, seed *GrantSeed) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.RolePermission{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := SeedGrants(ctx, db, seed)
	return err
}
