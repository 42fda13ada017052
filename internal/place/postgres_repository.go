package place

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coolroute/coolroute/pkg/geo"
)

// PostgresRepository is a PostgreSQL implementation of Index. Way topology
// for the matcher is served from an in-memory copy loaded at startup via
// LoadTopology; kNN and opening-hours queries hit the database.
type PostgresRepository struct {
	pool *pgxpool.Pool

	topology *MemoryIndex
}

// NewPostgresRepository creates a new PostgreSQL place repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool:     pool,
		topology: NewMemoryIndex(),
	}
}

// NearestNeighbors returns up to k matching places within maxDistance meters.
// Candidates are prefiltered with a bounding box in SQL and ordered by
// haversine distance; the predicate is applied in-process.
func (r *PostgresRepository) NearestNeighbors(ctx context.Context, origin geo.Point, k int, maxDistance float64, pred Predicate) ([]Place, error) {
	// ~111320 m per degree of latitude; longitude shrinks with cos(lat).
	latDelta := maxDistance / 111320.0
	lonDelta := maxDistance / (111320.0 * cosDeg(origin.Lat))

	query := `
		SELECT
			id, name, category, lat, lon, way_id,
			EXISTS (SELECT 1 FROM opening_hours oh WHERE oh.place_id = places.id)
		FROM places
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
	`

	rows, err := r.pool.Query(ctx, query,
		origin.Lat-latDelta, origin.Lat+latDelta,
		origin.Lon-lonDelta, origin.Lon+lonDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	defer rows.Close()

	var candidates []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Location.Lat, &p.Location.Lon, &p.WayID, &p.HasOpeningHours); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}
		if pred != nil && !pred(p) {
			continue
		}
		if geo.Distance(origin, p.Location) <= maxDistance {
			candidates = append(candidates, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating places: %w", err)
	}

	sortByDistance(candidates, origin)
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// OpeningHours returns the place's opening windows on the given date.
func (r *PostgresRepository) OpeningHours(ctx context.Context, placeID string, date time.Time) ([]OpeningWindow, error) {
	query := `
		SELECT weekday, open_minutes, close_minutes
		FROM opening_hours
		WHERE place_id = $1
		ORDER BY open_minutes
	`

	rows, err := r.pool.Query(ctx, query, placeID)
	if err != nil {
		return nil, fmt.Errorf("querying opening hours: %w", err)
	}
	defer rows.Close()

	var windows []OpeningWindow
	found := false
	for rows.Next() {
		found = true
		var weekday *int
		var openMinutes, closeMinutes int
		if err := rows.Scan(&weekday, &openMinutes, &closeMinutes); err != nil {
			return nil, fmt.Errorf("scanning opening hours: %w", err)
		}

		rule := OpeningRule{
			Open:  time.Duration(openMinutes) * time.Minute,
			Close: time.Duration(closeMinutes) * time.Minute,
		}
		if weekday != nil {
			wd := time.Weekday(*weekday)
			rule.Weekday = &wd
		}
		if rule.AppliesOn(date) {
			windows = append(windows, rule.Materialize(date))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opening hours: %w", err)
	}

	if !found {
		// Distinguish "closed today" from "unknown place".
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM places WHERE id = $1)`, placeID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking place existence: %w", err)
		}
		if !exists {
			return nil, ErrPlaceNotFound
		}
	}

	return windows, nil
}

// Place resolves a place by id.
func (r *PostgresRepository) Place(ctx context.Context, placeID string) (Place, error) {
	query := `
		SELECT
			id, name, category, lat, lon, way_id,
			EXISTS (SELECT 1 FROM opening_hours oh WHERE oh.place_id = places.id)
		FROM places
		WHERE id = $1
	`

	var p Place
	err := r.pool.QueryRow(ctx, query, placeID).Scan(
		&p.ID, &p.Name, &p.Category, &p.Location.Lat, &p.Location.Lon, &p.WayID, &p.HasOpeningHours,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Place{}, ErrPlaceNotFound
		}
		return Place{}, fmt.Errorf("querying place: %w", err)
	}
	return p, nil
}

// LoadTopology reads way node lists and node coordinates into memory. The
// segment matcher sits on the per-edge cost path, so topology lookups must
// not touch the database.
func (r *PostgresRepository) LoadTopology(ctx context.Context) error {
	wayRows, err := r.pool.Query(ctx, `SELECT way_id, node_id FROM way_nodes ORDER BY way_id, position`)
	if err != nil {
		return fmt.Errorf("querying way nodes: %w", err)
	}
	defer wayRows.Close()

	ways := make(map[int64][]int64)
	for wayRows.Next() {
		var wayID, nodeID int64
		if err := wayRows.Scan(&wayID, &nodeID); err != nil {
			return fmt.Errorf("scanning way node: %w", err)
		}
		ways[wayID] = append(ways[wayID], nodeID)
	}
	if err := wayRows.Err(); err != nil {
		return fmt.Errorf("iterating way nodes: %w", err)
	}
	for wayID, nodes := range ways {
		r.topology.AddWay(wayID, nodes)
	}

	nodeRows, err := r.pool.Query(ctx, `SELECT node_id, lat, lon FROM nodes`)
	if err != nil {
		return fmt.Errorf("querying nodes: %w", err)
	}
	defer nodeRows.Close()

	for nodeRows.Next() {
		var nodeID int64
		var p geo.Point
		if err := nodeRows.Scan(&nodeID, &p.Lat, &p.Lon); err != nil {
			return fmt.Errorf("scanning node: %w", err)
		}
		r.topology.AddNode(nodeID, p)
	}
	if err := nodeRows.Err(); err != nil {
		return fmt.Errorf("iterating nodes: %w", err)
	}

	return nil
}

// WayNodes returns the authoritative ordered node list for a way.
func (r *PostgresRepository) WayNodes(wayID int64) ([]int64, bool) {
	return r.topology.WayNodes(wayID)
}

// IsCyclicWay reports whether the way's node list closes on itself.
func (r *PostgresRepository) IsCyclicWay(wayID int64) bool {
	return r.topology.IsCyclicWay(wayID)
}

// NodeLocation returns a node's coordinates.
func (r *PostgresRepository) NodeLocation(nodeID int64) (geo.Point, bool) {
	return r.topology.NodeLocation(nodeID)
}
