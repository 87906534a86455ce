package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/internal/app"
	"github.com/anoixa/image-theatre/internal/files"
	"github.com/spf13/cobra"
)

// cleanCmd 清理存储中的孤儿文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete image files no longer referenced by any movie or attachment",
	Long: `Delete image files that are neither a movie's current image nor recorded as an attachment.
Files younger than the grace period are kept, since they may belong to an upload in progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		grace, _ := cmd.Flags().GetDuration("grace")

		if err := runClean(dryRun, grace, cmd.Flags().Changed("grace")); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Duration("grace", time.Hour, "Keep unreferenced files younger than this (default from CLEAN_GRACE_PERIOD)")
}

type imageNameLister interface {
	ImageNames(ctx context.Context) ([]string, error)
}

type fileNameLister interface {
	FileNames(ctx context.Context) ([]string, error)
}

// runClean 执行清理
func runClean(dryRun bool, grace time.Duration, graceSet bool) error {
	config.InitConfig()
	cfg := config.Get()
	if !graceSet && cfg.CleanGracePeriod > 0 {
		grace = cfg.CleanGracePeriod
	}

	ctx := context.Background()
	container := app.NewContainer(cfg)
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if err := container.InitStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	result, err := cleanOrphanFiles(ctx, container.MoviesRepo, container.AttachmentsRepo, container.FileStore(), time.Now().Add(-grace), dryRun)
	if err != nil {
		return err
	}

	printCleanSummary(result, dryRun)
	if result.Failures > 0 {
		return fmt.Errorf("%d files could not be deleted", result.Failures)
	}
	return nil
}

// collectReferenced 汇总仍被数据库引用的文件名
func collectReferenced(ctx context.Context, movies imageNameLister, attachments fileNameLister) (map[string]struct{}, error) {
	images, err := movies.ImageNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movie images: %w", err)
	}
	attached, err := attachments.FileNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	referenced := make(map[string]struct{}, len(images)+len(attached))
	for _, name := range images {
		referenced[name] = struct{}{}
	}
	for _, name := range attached {
		referenced[name] = struct{}{}
	}
	return referenced, nil
}

// cleanOrphanFiles 删除未被引用且早于 cutoff 的文件
func cleanOrphanFiles(ctx context.Context, movies imageNameLister, attachments fileNameLister, store *files.Store, cutoff time.Time, dryRun bool) (*files.SweepResult, error) {
	referenced, err := collectReferenced(ctx, movies, attachments)
	if err != nil {
		return nil, err
	}
	return store.Sweep(ctx, referenced, cutoff, dryRun)
}

// printCleanSummary 打印清理摘要
func printCleanSummary(result *files.SweepResult, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       [DRY RUN MODE]")
	}
	fmt.Println("         Clean Summary")
	fmt.Println("========================================")
	fmt.Printf("Files scanned:        %d\n", result.Scanned)
	fmt.Printf("Orphans found:        %d\n", len(result.Orphans))
	fmt.Printf("Kept (grace period):  %d\n", result.Skipped)
	if !dryRun {
		fmt.Printf("Deleted:              %d\n", result.Deleted)
		fmt.Printf("Failed:               %d\n", result.Failures)
	}
	for _, name := range result.Orphans {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("========================================")
}
