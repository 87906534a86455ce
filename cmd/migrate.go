package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Create or update the schema, or copy data from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateSchemaCmd 同步表结构
var migrateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or update tables in the configured database",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSchemaMigration(); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
	},
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Copy data between databases",
	Long: `Copy users, authors, movies, author links and attachments from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  image-theatre migrate run --from-sqlite ./data/theatre.db --to-postgres "host=localhost user=postgres password=secret dbname=theatre port=5432"

  # Replace rows that already exist in the target
  image-theatre migrate run --from-sqlite ./data/theatre.db --to-postgres "..." --on-conflict=overwrite

  # Stop on conflict
  image-theatre migrate run --from-sqlite ./data/theatre.db --to-postgres "..." --on-conflict=error`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		if err := runMigration(fromType, toType, fromDSN, toDSN, skipConfirm, batchSize, onConflict); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateSchemaCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", onConflictSkip, "Conflict resolution strategy: skip (default), overwrite, error")
}

// runSchemaMigration 对配置中的数据库执行 AutoMigrate
func runSchemaMigration() error {
	config.InitConfig()

	db, err := database.NewDB(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	log.Println("Schema is up to date")
	return nil
}

// runMigration 执行数据库迁移
func runMigration(fromType, toType, fromDSN, toDSN string, skipConfirm bool, batchSize int, onConflict string) error {
	if err := validateOnConflict(onConflict); err != nil {
		return err
	}
	if fromType == "" || toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if fromDSN == "" || toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if fromType == toType && fromDSN == toDSN {
		return fmt.Errorf("source and target databases are the same")
	}

	log.Printf("Migrating from %s to %s", fromType, toType)
	log.Printf("Source: %s", maskDSN(fromDSN))
	log.Printf("Target: %s", maskDSN(toDSN))
	log.Printf("Conflict strategy: %s", onConflict)

	sourceDB, err := openDatabase(fromType, fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer func() { _ = database.Close(sourceDB) }()

	targetDB, err := openDatabase(toType, toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer func() { _ = database.Close(targetDB) }()

	if !skipConfirm && !confirm(fmt.Sprintf("This will copy all data into the target database (on conflict: %s).", onConflict)) {
		fmt.Println("Migration cancelled.")
		return nil
	}

	log.Println("Migrating database schema...")
	if err := database.AutoMigrate(targetDB); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	stats, err := copyTables(context.Background(), sourceDB, targetDB, allTables, batchSize, onConflict)
	if stats != nil {
		printCopyStats(stats)
	}
	if err != nil {
		return err
	}

	log.Println("Migration completed successfully!")
	return nil
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(database.SQLiteDSN(dsn))
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, database.GormConfig(logger.Default.LogMode(logger.Silent)))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// confirm 交互式确认
func confirm(prompt string) bool {
	fmt.Println()
	fmt.Println("Warning: " + prompt)
	fmt.Print("Do you want to continue? [y/N]: ")
	var response string
	_, _ = fmt.Scanln(&response)
	return response == "y" || response == "Y"
}

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

// printCopyStats 打印迁移统计
func printCopyStats(stats *copyStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	for _, t := range allTables {
		fmt.Printf("%-18s copied %d, skipped %d\n", t.Name+":", stats.Copied[t.Name], stats.Skipped[t.Name])
	}
	fmt.Println("========================================")
}
