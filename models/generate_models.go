package models

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	zlog "github.com/rs/zerolog/log"
	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Maintenance modes, selected by environment variable at startup:

  GENERATE_MODELS=true         migrate the schema, print the column report
                               and generate typed query helpers into ./generated
  GENERATE_COLUMN_REPORT=true  only print the column report

The column report lists columns that exist in the hosted `projects` table but
have no field in Project. The hosted table is edited from the Supabase
dashboard too, so drift shows up here first.
*/

// registered lists every model owned by this service, keyed by table name.
var registered = map[string]any{
	"projects": Project{},
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Project{})
}

// GenerateModels migrates the schema and generates query helpers.
func GenerateModels(db *gorm.DB) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	verbose := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	db = db.Session(&gorm.Session{
		Logger:                 verbose,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(Project{})

	zlog.Info().Msg("migrating models")
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate models: %w", err)
	}

	if _, err := ColumnMismatchReport(db); err != nil {
		return err
	}

	g.Execute()
	zlog.Info().Str("outPath", "./generated").Msg("model generation complete")
	return nil
}

// ColumnMismatchReport logs, per table, the database columns that no model
// field maps to. It returns the total number of unmapped columns.
func ColumnMismatchReport(db *gorm.DB) (int, error) {
	total := 0
	for tableName, model := range registered {
		dbColumns, err := tableColumns(db, tableName)
		if err != nil {
			if strings.Contains(err.Error(), "does not exist") {
				zlog.Warn().Str("table", tableName).Msg("table does not exist yet")
				continue
			}
			return total, err
		}

		mismatches := findColumnMismatches(dbColumns, modelColumns(model))
		total += len(mismatches)
		if len(mismatches) > 0 {
			zlog.Warn().Str("table", tableName).Strs("columns", mismatches).Msg("columns not mapped by model")
		} else {
			zlog.Info().Str("table", tableName).Msg("all columns are mapped")
		}
	}
	zlog.Info().Int("total", total).Msg("column mismatch report done")
	return total, nil
}

func tableColumns(db *gorm.DB, tableName string) ([]string, error) {
	var columns []string
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`
	if err := db.Raw(query, tableName).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", tableName)
	}
	return columns, nil
}

// modelColumns reads the explicit column: entries from gorm tags.
func modelColumns(model any) []string {
	var fields []string
	t := reflect.TypeOf(model)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue
		}
		if name := columnFromGormTag(field.Tag.Get("gorm")); name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

func columnFromGormTag(tag string) string {
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

func findColumnMismatches(dbColumns, modelFields []string) []string {
	known := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		known[field] = true
	}
	var mismatches []string
	for _, col := range dbColumns {
		if !known[col] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}
