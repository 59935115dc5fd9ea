package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saudeplus/agenda-assistant/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 40); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedProcedures(context.Background(), pool); err != nil {
		log.Fatalf("seed procedures: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Cardiologia",
		"Dermatologia",
		"Clínica Geral",
		"Ortopedia",
		"Endocrinologia",
		"Neurologia",
		"Pediatria",
		"Psiquiatria",
		"Oftalmologia",
		"Otorrinolaringologia",
	}

	cities := []string{
		"São Paulo",
		"Rio de Janeiro",
		"Belo Horizonte",
		"Curitiba",
		"Porto Alegre",
	}

	// Morning and afternoon window templates; each doctor gets a few of
	// these on random weekdays.
	windows := [][2]int{
		{8, 12},
		{13, 17},
		{14, 18},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		name := "Dr(a). " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		city := cities[gofakeit.Number(0, len(cities)-1)]

		var doctorID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO doctors (name, specialty, city, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			RETURNING id
		`, name, spec, city).Scan(&doctorID)
		if err != nil {
			return err
		}

		// Two or three recurring windows on distinct weekdays (Mon-Fri).
		days := gofakeit.Number(2, 3)
		used := make(map[int]bool)
		for d := 0; d < days; d++ {
			weekday := gofakeit.Number(1, 5)
			if used[weekday] {
				continue
			}
			used[weekday] = true

			w := windows[gofakeit.Number(0, len(windows)-1)]
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_hours (doctor_id, weekday, start_time, end_time)
				VALUES ($1, $2, make_time($3, 0, 0), make_time($4, 0, 0))
			`, doctorID, weekday, w[0], w[1])
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedProcedures(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding procedure catalog")

	procedures := []struct {
		code      int64
		name      string
		auditDays int
	}{
		{40101012, "Consulta em consultório", 0},
		{40302016, "Hemograma completo", 0},
		{40901114, "Eletrocardiograma", 0},
		{40808012, "Radiografia de tórax", 0},
		{40901220, "Ecocardiograma transtorácico", 5},
		{41001010, "Ultrassonografia de abdome total", 5},
		{41101049, "Tomografia computadorizada de crânio", 10},
		{41101103, "Ressonância magnética de coluna lombar", 10},
		{40901130, "Teste ergométrico", 5},
		{42001015, "Endoscopia digestiva alta", 10},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range procedures {
		_, err := tx.Exec(ctx, `
			INSERT INTO procedures (code, name, audit_days)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING
		`, p.code, p.name, p.auditDays)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("procedures seeded")
	return nil
}
