package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/database"
	"github.com/stemsi/examgate/internal/logger"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stemsi/examgate/internal/repository"
	"github.com/stemsi/examgate/internal/service"
)

// seeder is implemented by both store drivers.
type seeder interface {
	CreateStudent(ctx context.Context, id int, name string) error
	CreateExam(ctx context.Context, e *model.ExamSpec) error
}

type pgSeeder struct {
	exams    *repository.ExamRepository
	students *repository.StudentRepository
}

func (s pgSeeder) CreateStudent(ctx context.Context, id int, name string) error {
	return s.students.CreateStudent(ctx, id, name)
}

func (s pgSeeder) CreateExam(ctx context.Context, e *model.ExamSpec) error {
	return s.exams.CreateExam(ctx, e)
}

var names = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
	"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
}

var demoQuestions = []model.Question{
	{Prompt: "2 + 2 = ?", Options: []string{"3", "4", "5", "22"}, CorrectOption: 2},
	{Prompt: "Ibu kota Indonesia?", Options: []string{"Jakarta", "Bandung", "Surabaya"}, CorrectOption: 1},
	{Prompt: "H2O adalah?", Options: []string{"Garam", "Air", "Oksigen", "Hidrogen"}, CorrectOption: 2},
	{Prompt: "Planet terbesar?", Options: []string{"Mars", "Bumi", "Jupiter"}, CorrectOption: 3},
}

func main() {
	var liveFor time.Duration
	flag.DurationVar(&liveFor, "live-for", 2*time.Hour, "How long the seeded timed exam stays LIVE")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s, closeFn, err := openSeeder(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeFn()

	fmt.Printf("=== Seeding %d students ===\n", len(names))
	for i, name := range names {
		if err := s.CreateStudent(ctx, i+1, name); err != nil {
			log.Fatal().Err(err).Int("student_id", i+1).Msg("Failed to create student")
		}
	}

	now := time.Now()
	exams := []*model.ExamSpec{
		{
			Title:             "Ujian Harian Sains",
			Description:       "Ujian bertanggal, satu kali kumpul.",
			Window:            model.Timed{Start: now, End: now.Add(liveFor), DurationMinutes: int(liveFor.Minutes())},
			Questions:         demoQuestions,
			MarksPerQuestion:  5,
			PassingPercentage: 60,
			Watermark:         model.Watermark{Enabled: true, Text: "RAHASIA"},
		},
		{
			Title:             "Latihan Sains",
			Description:       "Latihan bebas, tidak disimpan.",
			Window:            model.Practice{},
			Questions:         demoQuestions,
			MarksPerQuestion:  1,
			PassingPercentage: model.DefaultPassingPercentage,
		},
	}
	for _, e := range exams {
		if err := s.CreateExam(ctx, e); err != nil {
			log.Fatal().Err(err).Str("title", e.Title).Msg("Failed to create exam")
		}
		fmt.Printf("Created %s exam %q: %s\n", e.Type(), e.Title, e.ID)
	}

	auth := service.NewAuthService(cfg)
	studentToken, err := auth.IssueToken(service.TokenTypeStudent, 1, "", names[0], 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue student token")
	}
	staffToken, err := auth.IssueToken(service.TokenTypeStaff, 1, service.RoleTeacher, "Guru Demo", 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue staff token")
	}

	fmt.Printf("\nStudent token (id 1): %s\n", studentToken)
	fmt.Printf("Staff token (teacher): %s\n", staffToken)
	fmt.Println("\nSeed completed!")
}

func openSeeder(ctx context.Context, cfg *config.Config, log zerolog.Logger) (seeder, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, nil, err
		}
		return pgSeeder{
			exams:    repository.NewExamRepository(pool),
			students: repository.NewStudentRepository(pool),
		}, pool.Close, nil

	case config.StoreDriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
