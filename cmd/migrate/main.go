// Command migrate applies the BigQuery schema migrations under
// migrations/bigquery in version order. Applied versions are recorded in a
// schema_migrations table so reruns are idempotent.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// migrationPattern matches files named like 0001_transactions.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one SQL file from the migrations directory.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row from schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var (
	projectID     = flag.String("project", os.Getenv("GCP_PROJECT_ID"), "GCP project ID (required)")
	datasetID     = flag.String("dataset", "boekhouding", "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name recorded as the applier")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	if *projectID == "" {
		log.Fatal("Error: -project flag or GCP_PROJECT_ID is required.")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("Failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to BigQuery project: %s, dataset: %s", *projectID, *datasetID)

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		log.Fatalf("Failed to ensure schema_migrations table: %v", err)
	}

	migrations, err := loadMigrations(*migrationsDir, *projectID, *datasetID)
	if err != nil {
		log.Fatalf("Failed to read migrations: %v", err)
	}

	log.Printf("Found %d migration files", len(migrations))

	applied, err := getAppliedMigrations(ctx, client)
	if err != nil {
		log.Fatalf("Failed to get applied migrations: %v", err)
	}

	log.Printf("Found %d already applied migrations", len(applied))

	appliedByVersion := make(map[int]AppliedMigration)
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	appliedCount := 0
	for _, m := range migrations {
		if am, ok := appliedByVersion[m.Version]; ok {
			if am.Checksum != "" && am.Checksum != m.Checksum {
				log.Printf("  [WARN] %04d_%s changed on disk since it was applied", m.Version, m.Name)
			}
			log.Printf("  [SKIP] %04d_%s (already applied)", m.Version, m.Name)
			continue
		}

		log.Printf("  [RUN]  %04d_%s", m.Version, m.Name)

		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			log.Fatalf("Failed to execute migration %04d_%s: %v", m.Version, m.Name, err)
		}

		if err := recordMigration(ctx, client, m); err != nil {
			log.Fatalf("Failed to record migration %04d_%s: %v", m.Version, m.Name, err)
		}

		log.Printf("  [OK]   %04d_%s", m.Version, m.Name)
		appliedCount++
	}

	if appliedCount == 0 {
		log.Println("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Printf("Successfully applied %d migration(s)", appliedCount)
	}
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, *projectID, *datasetID)

	return runStatement(ctx, client, sql, nil)
}

// loadMigrations reads every migration file in dir, substitutes the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders and returns the result
// sorted by version. The checksum covers the file as written, placeholders
// included, so the same migration applied to two projects records the same
// checksum.
func loadMigrations(dir, projectID, datasetID string) ([]Migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Running from cmd/migrate instead of the repo root.
		parent := filepath.Join("..", "..", dir)
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
		dir = parent
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Printf("Skipping file with invalid format: %s", file.Name())
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Printf("Skipping file with invalid version: %s", file.Name())
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, *projectID, *datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// First run against a fresh dataset.
		if strings.Contains(err.Error(), "Not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, m Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, *projectID, *datasetID)

	return runStatement(ctx, client, sql, []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	})
}

// runStatement runs one DDL or DML statement and waits for the job.
func runStatement(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	query := client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
