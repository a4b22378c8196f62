package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"libraryapi/internal/config"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/postgres"
)

var (
	firstNames = []string{"Ada", "Alan", "Grace", "Edsger", "Barbara", "Donald", "Margaret", "Ken", "Frances", "Dennis"}
	lastNames  = []string{"Lovelace", "Turing", "Hopper", "Dijkstra", "Liskov", "Knuth", "Hamilton", "Thompson", "Allen", "Ritchie"}
	authors    = []string{"Ursula K. Le Guin", "Frank Herbert", "Isaac Asimov", "Octavia Butler", "Stanislaw Lem", "Iain M. Banks"}
	words      = []string{"Algorithm", "Data", "System", "Network", "Cloud", "Code", "Logic", "Machine", "Signal", "Memory"}
)

func main() {
	var (
		students = flag.Int("students", 100, "Number of students to insert")
		books    = flag.Int("books", 1000, "Number of books to insert")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	logger.Info("inserting students", zap.Int("count", *students))
	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"students"},
		[]string{"email", "first_name", "last_name", "birth_date"},
		pgx.CopyFromRows(studentRows(rng, *students, time.Now().UnixNano())),
	)
	if err != nil {
		logger.Fatal("failed to insert students", zap.Error(err))
	}
	logger.Info("students inserted", zap.Int64("rows", n))

	logger.Info("inserting books", zap.Int("count", *books))
	n, err = pool.CopyFrom(ctx,
		pgx.Identifier{"books"},
		[]string{"title", "author", "isbn"},
		pgx.CopyFromRows(bookRows(rng, *books, rng.Intn(1_000_000))),
	)
	if err != nil {
		logger.Fatal("failed to insert books", zap.Error(err))
	}
	logger.Info("books inserted", zap.Int64("rows", n))

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err == nil {
		logger.Info("seed complete", zap.Int("books_total", total))
	}
}

// studentRows builds count students whose emails are unique for the given batch.
func studentRows(rng *rand.Rand, count int, batch int64) [][]any {
	rows := make([][]any, 0, count)
	for i := 0; i < count; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		email := fmt.Sprintf("student%d.%d@example.com", batch, i+1)
		born := time.Date(1995+rng.Intn(12), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		rows = append(rows, []any{email, first, last, born})
	}
	return rows
}

// bookRows builds count books with consecutive valid ISBN-13 numbers
// starting at offset.
func bookRows(rng *rand.Rand, count, offset int) [][]any {
	rows := make([][]any, 0, count)
	for i := 0; i < count; i++ {
		title := fmt.Sprintf("%s of %s %d", words[rng.Intn(len(words))], words[rng.Intn(len(words))], i+1)
		author := authors[rng.Intn(len(authors))]
		rows = append(rows, []any{title, author, isbn13(offset + i)})
	}
	return rows
}

// isbn13 returns the 978-prefixed ISBN-13 for serial n with its check digit.
func isbn13(n int) string {
	body := "978" + fmt.Sprintf("%09d", n%1_000_000_000)
	sum := 0
	for i, c := range body {
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return body + strconv.Itoa((10-sum%10)%10)
}
