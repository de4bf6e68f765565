package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource serves the catalog from a `siar.estaciones` table, for
// deployments that manage the station list centrally instead of shipping
// the JSON file alongside the binary.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a source backed by a pgx pool.
func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &UnavailableError{Source: "postgres", Cause: err}
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the pool resources.
func (p *PostgresSource) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

const listStationsSQL = `
    SELECT codigo, estacion, latitud, longitud
    FROM siar.estaciones
    ORDER BY codigo
`

// LoadAll returns every station row in catalog order.
func (p *PostgresSource) LoadAll(ctx context.Context) ([]Station, error) {
	rows, err := p.pool.Query(ctx, listStationsSQL)
	if err != nil {
		return nil, &UnavailableError{Source: "postgres", Cause: err}
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.Code, &st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, &UnavailableError{Source: "postgres", Cause: err}
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Source: "postgres", Cause: err}
	}

	return stations, nil
}
