package cmd

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// 单行 JSONL 的上限
const maxRestoreLine = 4 << 20

// restoreCmd 数据库还原命令
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore catalog tables from backup archive",
	Long: `Restore catalog tables from a tar.gz backup archive created by the backup command.

Example:
  # Restore from backup file
  image-theatre restore --input ./backups/backup_20260214_222320.tar.gz

  # Restore with dry-run (preview only)
  image-theatre restore --input ./backup.tar.gz --dry-run

  # Restore specific tables only
  image-theatre restore --input ./backup.tar.gz --tables authors,movies

  # Clear existing data before restore
  image-theatre restore --input ./backup.tar.gz --truncate`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		tables, _ := cmd.Flags().GetStringSlice("tables")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		truncate, _ := cmd.Flags().GetBool("truncate")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		opts := restoreOptions{
			Tables:     tables,
			DryRun:     dryRun,
			Truncate:   truncate,
			OnConflict: onConflict,
		}
		if err := runRestore(inputFile, opts, skipConfirm); err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringP("input", "i", "", "Input tar.gz backup file path (required)")
	restoreCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to restore (default: all in archive)")
	restoreCmd.Flags().Bool("dry-run", false, "Preview restore without actually writing to database")
	restoreCmd.Flags().Bool("truncate", false, "Clear existing data before restore")
	restoreCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	restoreCmd.Flags().String("on-conflict", onConflictSkip, "Conflict resolution strategy: skip (default), overwrite, error")

	_ = restoreCmd.MarkFlagRequired("input")
}

// restoreOptions 还原选项
type restoreOptions struct {
	Tables     []string
	DryRun     bool
	Truncate   bool
	OnConflict string
}

// restoreStats 还原统计
type restoreStats struct {
	Restored map[string]int64
	Skipped  map[string]int64
}

func newRestoreStats() *restoreStats {
	return &restoreStats{
		Restored: make(map[string]int64),
		Skipped:  make(map[string]int64),
	}
}

// runRestore 执行还原
func runRestore(inputFile string, opts restoreOptions, skipConfirm bool) error {
	if _, err := os.Stat(inputFile); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	config.InitConfig()

	db, err := database.NewDB(config.Get())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if !opts.DryRun && !skipConfirm {
		prompt := "This will restore data from backup to the current database."
		if opts.Truncate {
			prompt += " Existing catalog data will be DELETED."
		}
		if !confirm(prompt) {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	stats, err := restoreBackup(context.Background(), db, inputFile, opts)
	if stats != nil {
		printRestoreSummary(stats, opts.DryRun)
	}
	return err
}

// restoreBackup 解压归档并按依赖顺序写回各表
func restoreBackup(ctx context.Context, db *gorm.DB, inputFile string, opts restoreOptions) (*restoreStats, error) {
	if opts.OnConflict == "" {
		opts.OnConflict = onConflictSkip
	}
	if err := validateOnConflict(opts.OnConflict); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "image-theatre-restore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	log.Printf("Extracting backup: %s", inputFile)
	if err := extractTarGz(inputFile, tempDir); err != nil {
		return nil, fmt.Errorf("failed to extract backup: %w", err)
	}

	metadata, err := readMetadata(filepath.Join(tempDir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if metadata.Version != backupFormatVersion {
		return nil, fmt.Errorf("unsupported backup version: %s", metadata.Version)
	}
	log.Printf("Backup version: %s, Database: %s, Timestamp: %s",
		metadata.Version, metadata.Database, metadata.Timestamp.Format("2006-01-02 15:04:05"))

	names := opts.Tables
	if len(names) == 0 {
		names = metadata.Tables
	}
	tables, err := selectTables(catalogTables, names)
	if err != nil {
		return nil, err
	}

	stats := newRestoreStats()
	if opts.DryRun {
		for _, t := range tables {
			n, err := countLines(filepath.Join(tempDir, t.Name+".jsonl"))
			if err != nil {
				return nil, err
			}
			stats.Restored[t.Name] = n
		}
		return stats, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Truncate {
			if err := truncateTables(tx, tables); err != nil {
				return err
			}
		}
		for _, t := range tables {
			path := filepath.Join(tempDir, t.Name+".jsonl")
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				log.Printf("Skipping %s: file not found in backup", t.Name)
				continue
			}
			if err := restoreTable(tx, t, path, opts.OnConflict, stats); err != nil {
				return fmt.Errorf("restore %s: %w", t.Name, err)
			}
			log.Printf("Restored %d records to %s", stats.Restored[t.Name], t.Name)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := resetSequences(ctx, db, tables); err != nil {
		log.Printf("Warning: failed to update auto-increment sequences: %v", err)
	}
	return stats, nil
}

// readMetadata 读取元数据
func readMetadata(path string) (*backupMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var metadata backupMetadata
	if err := json.NewDecoder(file).Decode(&metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// extractTarGz 解压 tar.gz 文件，拒绝跳出目标目录的路径
func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer func() { _ = gzReader.Close() }()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !filepath.IsLocal(header.Name) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		targetPath := filepath.Join(destDir, header.Name)
		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return err
		}
		outFile, err := os.Create(targetPath)
		if err != nil {
			return err
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			_ = outFile.Close()
			return err
		}
		if err := outFile.Close(); err != nil {
			return err
		}
	}
}

// restoreTable 逐行还原单张表
func restoreTable(tx *gorm.DB, t tableSpec, path string, onConflict string, stats *restoreStats) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRestoreLine)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		record, err := t.decode(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		inserted, err := insertRecord(tx, record, onConflict)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if inserted {
			stats.Restored[t.Name]++
		} else {
			stats.Skipped[t.Name]++
		}
	}
	return scanner.Err()
}

func countLines(path string) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRestoreLine)
	var n int64
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	return n, scanner.Err()
}

// truncateTables 按依赖逆序清空
func truncateTables(tx *gorm.DB, tables []tableSpec) error {
	for i := len(tables) - 1; i >= 0; i-- {
		name := tables[i].Name
		log.Printf("Truncating table: %s", name)
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", name)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", name, err)
		}
	}
	return nil
}

// printRestoreSummary 打印还原摘要
func printRestoreSummary(stats *restoreStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       [DRY RUN MODE]")
	}
	fmt.Println("         Restore Summary")
	fmt.Println("========================================")
	for _, t := range catalogTables {
		restored, skipped := stats.Restored[t.Name], stats.Skipped[t.Name]
		if restored == 0 && skipped == 0 {
			continue
		}
		fmt.Printf("  %-18s restored %d, skipped %d\n", t.Name+":", restored, skipped)
	}
	fmt.Println("========================================")
}
