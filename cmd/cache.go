package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/internal/app"
	"github.com/spf13/cobra"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage the movie detail cache. Useful with a shared Redis cache after editing rows by hand.",
}

// cacheEvictCmd 清除影片缓存
var cacheEvictCmd = &cobra.Command{
	Use:   "evict [movie-id...]",
	Short: "Evict cached movie details",
	Long: `Evict cached movie details for the given ids, or for every movie with --all.

Example:
  image-theatre cache evict 3 7
  image-theatre cache evict --all`,
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")

		ids, err := parseMovieIDs(args)
		if err != nil {
			log.Fatalf("Cache evict failed: %v", err)
		}
		if !all && len(ids) == 0 {
			log.Fatalf("Cache evict failed: pass movie ids or --all")
		}
		if err := runCacheEvict(ids, all); err != nil {
			log.Fatalf("Cache evict failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheEvictCmd)

	cacheEvictCmd.Flags().Bool("all", false, "Evict every movie")
}

func parseMovieIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid movie id: %q", arg)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// runCacheEvict 执行缓存清理
func runCacheEvict(ids []uint, all bool) error {
	config.InitConfig()
	ctx := context.Background()

	container := app.NewContainer(config.Get())
	if err := container.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if all {
		movies, err := container.MoviesRepo.GetAll(ctx)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, m := range movies {
			ids = append(ids, m.ID)
		}
	}

	container.MovieCache().Invalidate(ctx, ids...)
	log.Printf("Evicted %d movies from %s cache", len(ids), container.MovieCache().Name())
	return nil
}
