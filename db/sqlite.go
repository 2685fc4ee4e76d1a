package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"carbonadvisor/ml"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the estimates table.
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS estimates (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        soil_ph REAL NOT NULL,
        soil_moisture REAL NOT NULL,
        temperature REAL NOT NULL,
        rainfall REAL NOT NULL,
        crop_type TEXT NOT NULL,
        fertilizer REAL NOT NULL,
        pesticide REAL NOT NULL,
        crop_yield REAL NOT NULL,
        estimate REAL NOT NULL,
        band TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
    `

	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	database = conn
	return nil
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type EstimateRecord struct {
	ID          int64          `json:"id"`
	Observation ml.Observation `json:"observation"`
	Estimate    float64        `json:"estimate"`
	Band        ml.Band        `json:"band"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SaveEstimate stores one served estimate and returns its row id.
func SaveEstimate(record EstimateRecord) (int64, error) {
	if database == nil {
		return 0, errors.New("database not initialized")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	obs := record.Observation
	res, err := database.Exec(`
        INSERT INTO estimates (
            soil_ph, soil_moisture, temperature, rainfall, crop_type,
            fertilizer, pesticide, crop_yield, estimate, band, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		obs.SoilPH,
		obs.SoilMoisture,
		obs.Temperature,
		obs.Rainfall,
		obs.CropType,
		obs.Fertilizer,
		obs.Pesticide,
		obs.CropYield,
		record.Estimate,
		record.Band.String(),
		record.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// QueryEstimates returns the most recent estimates, newest first.
func QueryEstimates(limit int) ([]EstimateRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, soil_ph, soil_moisture, temperature, rainfall, crop_type,
               fertilizer, pesticide, crop_yield, estimate, band, created_at
        FROM estimates
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]EstimateRecord, 0)
	for rows.Next() {
		var r EstimateRecord
		var band string
		o := &r.Observation
		if err := rows.Scan(&r.ID, &o.SoilPH, &o.SoilMoisture, &o.Temperature, &o.Rainfall, &o.CropType,
			&o.Fertilizer, &o.Pesticide, &o.CropYield, &r.Estimate, &band, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.Band, err = ml.ParseBand(band); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// BandSummary counts stored estimates per band. Bands with no rows are
// reported as zero.
func BandSummary() (map[ml.Band]int, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`SELECT band, COUNT(*) FROM estimates GROUP BY band`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := make(map[ml.Band]int, len(ml.Bands()))
	for _, band := range ml.Bands() {
		summary[band] = 0
	}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		band, err := ml.ParseBand(name)
		if err != nil {
			return nil, err
		}
		summary[band] = count
	}
	return summary, rows.Err()
}
