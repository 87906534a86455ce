package cmd

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const backupFormatVersion = "1.0"

// backupCmd 数据库备份命令
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup catalog tables to a JSONL archive",
	Long: `Backup authors, movies, author links and attachments to JSONL files packed into a tar.gz archive.
Image files are not included; back up the storage backend separately.

Example:
  # Backup to default file (./backups/backup_YYYYMMDD_HHMMSS.tar.gz)
  image-theatre backup

  # Backup to specific file
  image-theatre backup --output ./my-backup.tar.gz

  # Backup specific tables only
  image-theatre backup --tables authors,movies`,
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")
		tables, _ := cmd.Flags().GetStringSlice("tables")

		if err := runBackup(outputFile, tables); err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("output", "o", "", "Output tar.gz file path (default: ./backups/backup_YYYYMMDD_HHMMSS.tar.gz)")
	backupCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to backup (default: all)")
}

// backupMetadata 备份元数据
type backupMetadata struct {
	Version     string           `json:"version"`
	Timestamp   time.Time        `json:"timestamp"`
	Database    string           `json:"database"`
	Tables      []string         `json:"tables"`
	RecordCount map[string]int64 `json:"record_count"`
}

// runBackup 执行备份
func runBackup(outputFile string, tableNames []string) error {
	config.InitConfig()
	cfg := config.Get()

	db, err := database.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if outputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputFile = filepath.Join("./backups", fmt.Sprintf("backup_%s.tar.gz", timestamp))
	}

	tables, err := selectTables(catalogTables, tableNames)
	if err != nil {
		return err
	}

	log.Printf("Starting backup to: %s", outputFile)
	metadata, err := writeBackup(context.Background(), db, tables, outputFile)
	if err != nil {
		return err
	}

	log.Printf("Backup completed successfully: %s", outputFile)
	printBackupSummary(metadata, outputFile)
	return nil
}

// writeBackup 导出各表为 JSONL 并打包
func writeBackup(ctx context.Context, db *gorm.DB, tables []tableSpec, outputFile string) (*backupMetadata, error) {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "image-theatre-backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	metadata := &backupMetadata{
		Version:     backupFormatVersion,
		Timestamp:   time.Now(),
		Database:    db.Dialector.Name(),
		RecordCount: make(map[string]int64),
	}

	for _, t := range tables {
		count, err := backupTable(ctx, db, t, tempDir)
		if err != nil {
			return nil, fmt.Errorf("failed to backup table %s: %w", t.Name, err)
		}
		metadata.Tables = append(metadata.Tables, t.Name)
		metadata.RecordCount[t.Name] = count
		log.Printf("Backed up %d records from table: %s", count, t.Name)
	}

	if err := writeJSONFile(filepath.Join(tempDir, "metadata.json"), metadata); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := createTarGz(tempDir, outputFile); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	return metadata, nil
}

// backupTable 备份单张表到 JSONL 文件
func backupTable(ctx context.Context, db *gorm.DB, t tableSpec, tempDir string) (int64, error) {
	file, err := os.Create(filepath.Join(tempDir, t.Name+".jsonl"))
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	return t.each(ctx, db, 500, func(record interface{}) error {
		return encoder.Encode(record)
	})
}

// writeJSONFile 写入 JSON 文件
func writeJSONFile(path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// createTarGz 创建 tar.gz 归档，只包含 sourceDir 下的普通文件
func createTarGz(sourceDir, targetFile string) (err error) {
	file, err := os.Create(targetFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	gzWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzWriter)

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addTarFile(tarWriter, filepath.Join(sourceDir, entry.Name())); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzWriter.Close()
}

func addTarFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = info.Name()

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// printBackupSummary 打印备份摘要
func printBackupSummary(metadata *backupMetadata, outputFile string) {
	fmt.Println("\nBackup Summary:")
	fmt.Println("===============")
	fmt.Printf("Version:    %s\n", metadata.Version)
	fmt.Printf("Timestamp:  %s\n", metadata.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Database:   %s\n", metadata.Database)
	fmt.Printf("Output:     %s\n", outputFile)
	fmt.Println("\nTables backed up:")
	var total int64
	for _, table := range metadata.Tables {
		count := metadata.RecordCount[table]
		total += count
		fmt.Printf("  - %s: %d records\n", table, count)
	}
	fmt.Printf("\nTotal records: %d\n", total)
}
