package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/logger"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var qualifications = []string{"MBBS", "MBBS, MD", "MBBS, MS", "MD, DNB", "MBBS, DM"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresPool)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	repo := catalog.NewPgRepository(pool)
	seedCtx := context.Background()

	if err := seedSlots(seedCtx, log, repo); err != nil {
		log.Fatal("seed slots", zap.Error(err))
	}
	if err := seedDoctors(seedCtx, log, repo, 5); err != nil {
		log.Fatal("seed doctors", zap.Error(err))
	}

	log.Info("seed complete")
}

// seedSlots creates half-hour slots from 09:00 to 16:30. Existing labels are
// left alone so the seed can be re-run.
func seedSlots(ctx context.Context, log *zap.Logger, repo catalog.Repository) error {
	created := 0
	for minutes := 9 * 60; minutes <= 16*60+30; minutes += 30 {
		label := fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
		if _, err := repo.CreateSlot(ctx, label); err != nil {
			if errors.Is(err, catalog.ErrDuplicate) {
				continue
			}
			return err
		}
		created++
	}
	log.Info("slots seeded", zap.Int("created", created))
	return nil
}

func seedDoctors(ctx context.Context, log *zap.Logger, repo catalog.Repository, perCategory int) error {
	existing, err := repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]int, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.ID
	}

	created := 0
	for _, name := range specialties {
		categoryID, ok := byName[name]
		if !ok {
			c, err := repo.CreateCategory(ctx, name, "Specialists in "+strings.ToLower(name))
			if err != nil {
				return fmt.Errorf("category %s: %w", name, err)
			}
			categoryID = c.ID
		}

		for i := 0; i < perCategory; i++ {
			_, err := repo.CreateDoctor(ctx, catalog.Doctor{
				Name:            "Dr. " + gofakeit.Name(),
				ExperienceYears: strconv.Itoa(gofakeit.Number(1, 35)),
				Qualifications:  qualifications[gofakeit.Number(0, len(qualifications)-1)],
				Ratings:         math.Round(gofakeit.Float64Range(3, 5)*10) / 10,
				CategoryID:      categoryID,
			})
			if err != nil {
				if errors.Is(err, catalog.ErrDuplicate) {
					continue
				}
				return fmt.Errorf("doctor in %s: %w", name, err)
			}
			created++
		}
	}

	log.Info("doctors seeded", zap.Int("created", created), zap.Int("categories", len(specialties)))
	return nil
}
