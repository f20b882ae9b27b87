// Command todoctl is a maintenance tool for the relational todo store:
// it lists pending items and marks them completed.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"TodoScanner/internal/config"
	"TodoScanner/internal/infrastructure/sink"
	"TodoScanner/pkg/logger"
)

func main() {
	complete := flag.Int64("complete", 0, "mark the todo with this id as completed")
	flag.Parse()

	log := logger.New("todoctl")

	cfg := config.Load()
	if cfg.Sinks.Database.DSN == "" {
		log.Println("no database configured (set DATABASE_DSN or sinks.database.dsn)")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Sinks.Database.DSN)
	if err != nil {
		log.Printf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	store := sink.NewPostgresSink(db)

	if *complete > 0 {
		if err := store.MarkCompleted(ctx, *complete); err != nil {
			log.Printf("mark completed: %v", err)
			os.Exit(1)
		}
		log.Printf("todo %d marked completed", *complete)
		return
	}

	todos, err := store.PendingTodos(ctx)
	if err != nil {
		log.Printf("list pending: %v", err)
		os.Exit(1)
	}

	if len(todos) == 0 {
		log.Println("no pending todos")
		return
	}

	for _, todo := range todos {
		line := fmt.Sprintf("#%d [%s] %s", todo.ID, todo.Priority, todo.Action)
		if todo.Deadline != "" {
			line += " (due " + todo.Deadline + ")"
		}
		log.Println(line)
	}
}
