package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"intellicourse/config"
)

var DB *sql.DB

func InitDB() error {
	var err error
	connStr := config.GetDBConnString()

	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	err = DB.Ping()
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	// Create tables
	if err := createTables(); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	return nil
}

func createTables() error {
	courseTable := `
	CREATE TABLE IF NOT EXISTS course (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		price NUMERIC(12,2) NOT NULL,
		is_active INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	paymentTable := `
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		course_id INTEGER NOT NULL,
		method TEXT NOT NULL,
		amount NUMERIC(20,8) NOT NULL,
		currency TEXT NOT NULL,
		user_id TEXT,
		source_address TEXT,
		status TEXT NOT NULL,
		reference TEXT,
		amount_zar NUMERIC(12,2) NOT NULL,
		crypto_amount NUMERIC(20,8),
		crypto_currency TEXT,
		tx_hash TEXT,
		proof_ref TEXT,
		download_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		confirmed_at TIMESTAMP
	);`

	payoutTable := `
	CREATE TABLE IF NOT EXISTS payouts (
		id SERIAL PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES payments(id),
		total NUMERIC(12,2) NOT NULL,
		buckets JSONB NOT NULL,
		distributed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	paymentIndex := `
	CREATE INDEX IF NOT EXISTS idx_payments_user_course
		ON payments (user_id, course_id, status);`

	if _, err := DB.Exec(courseTable); err != nil {
		return fmt.Errorf("error creating course table: %w", err)
	}
	if _, err := DB.Exec(paymentTable); err != nil {
		return fmt.Errorf("error creating payments table: %w", err)
	}
	if _, err := DB.Exec(payoutTable); err != nil {
		return fmt.Errorf("error creating payouts table: %w", err)
	}
	if _, err := DB.Exec(paymentIndex); err != nil {
		return fmt.Errorf("error creating payments index: %w", err)
	}

	// Seed the storefront catalog on first run
	seed := `
	INSERT INTO course (title, description, price)
	SELECT v.title, v.description, v.price
	FROM (VALUES
		('AI Fundamentals', 'Foundations of machine learning and practical AI tooling', 1499.00),
		('Full-Stack Web Development', 'Build and ship production web applications', 2499.00),
		('Digital Marketing Mastery', 'Campaigns, analytics and growth channels', 1299.00)
	) AS v(title, description, price)
	WHERE NOT EXISTS (SELECT 1 FROM course);`

	if _, err := DB.Exec(seed); err != nil {
		log.Println("Warning: error seeding course catalog:", err)
	}

	return nil
}
