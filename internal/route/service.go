package route

import (
	"context"

	"backend-coastpath/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// SaveDefinition validates the raw GeoJSON, computes the route length and
// stores the definition. The stored GeoJSON is the original payload; the
// length is always the measured one.
func (s *Service) SaveDefinition(ctx context.Context, input Definition) (Definition, error) {
	ref, err := Load(input.GeoJSON)
	if err != nil {
		return Definition{}, err
	}

	input.ID = uuid.NewString()
	input.TotalLengthKm = ref.TotalKm
	row := s.db.QueryRow(ctx, `
		INSERT INTO route_definitions (id, name, total_length_km, geojson, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, input.ID, input.Name, input.TotalLengthKm, []byte(input.GeoJSON), input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Definition{}, err
	}
	return input, nil
}

func (s *Service) GetDefinition(ctx context.Context, id string) (Definition, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, total_length_km, geojson, created_by, created_at
		FROM route_definitions WHERE id=$1
	`, id)
	var def Definition
	var raw []byte
	if err := row.Scan(&def.ID, &def.Name, &def.TotalLengthKm, &raw, &def.CreatedBy, &def.CreatedAt); err != nil {
		return Definition{}, err
	}
	def.GeoJSON = raw
	return def, nil
}

// List returns definitions without their geometry payloads.
func (s *Service) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, total_length_km, created_by, created_at
		FROM route_definitions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(&def.ID, &def.Name, &def.TotalLengthKm, &def.CreatedBy, &def.CreatedAt); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
