package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"rancho-chat/config"
	"rancho-chat/internal/repository"
	"rancho-chat/internal/security"
	"rancho-chat/pkg/database"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const usage = `
Rancho Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create the schema (Postgres) or indexes (MongoDB)
  status      Show database connection status
  seed-dev    Seed with development/test data

Flags:
  -admin-email string  Admin email for seeding (default "admin@rancho.chat")
  -admin-pass string   Admin password for seeding (default "Admin@123!")
  -users int           Number of test users to create (default 3)

The store is selected with STORE_DRIVER (postgres or mongo).

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  STORE_DRIVER=mongo go run cmd/migrate/main.go seed-dev
`

type target struct {
	pg    *sql.DB
	mongo *mongo.Database
	close func()
}

func main() {
	defaults := database.DefaultSeedConfig()
	adminEmail := flag.String("admin-email", defaults.AdminEmail, "Admin email for seeding")
	adminPass := flag.String("admin-pass", defaults.AdminPassword, "Admin password for seeding")
	users := flag.Int("users", defaults.TestUserCount, "Number of test users to create")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t, err := connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Connection failed: %v", err)
	}
	defer t.close()

	switch command {
	case "up":
		runMigrationsUp(ctx, t)
	case "status":
		showStatus(ctx, t)
	case "seed-dev":
		seed := *defaults
		seed.AdminEmail = *adminEmail
		seed.AdminPassword = *adminPass
		seed.TestUserCount = *users
		runSeedDevelopment(ctx, cfg, t, &seed)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg *config.Config) (*target, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &target{pg: db, close: func() { db.Close() }}, nil
	case config.StoreDriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &target{mongo: db, close: func() { _ = client.Disconnect(context.Background()) }}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func runMigrationsUp(ctx context.Context, t *target) {
	log.Println("🚀 Running migrations UP...")

	var err error
	if t.pg != nil {
		err = repository.InitSchema(ctx, t.pg)
	} else {
		err = repository.EnsureMongoIndexes(ctx, t.mongo)
	}
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus(ctx context.Context, t *target) {
	log.Println("🔍 Checking database status...")

	if t.mongo != nil {
		names, err := t.mongo.ListCollectionNames(ctx, bson.M{})
		if err != nil {
			log.Fatalf("❌ Database connection failed: %v", err)
		}
		log.Println("✅ Database connection: OK")
		present := map[string]bool{}
		for _, n := range names {
			present[n] = true
		}
		for _, coll := range repository.Collections {
			if !present[coll] {
				log.Printf("❌ Collection %-20s does not exist", coll)
				continue
			}
			count, _ := t.mongo.Collection(coll).EstimatedDocumentCount(ctx)
			log.Printf("✅ Collection %-20s exists (%d documents)", coll, count)
		}
		return
	}

	if err := database.HealthCheck(ctx, t.pg); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, table := range repository.Tables {
		exists, err := database.TableExists(ctx, t.pg, table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(ctx, t.pg, table)
			log.Printf("✅ Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("❌ Table %-20s does not exist", table)
		}
	}
}

func runSeedDevelopment(ctx context.Context, cfg *config.Config, t *target, seed *database.SeedConfig) {
	log.Println("🌱 Seeding database (development mode)...")

	var stores database.SeedStores
	if t.pg != nil {
		stores = database.SeedStores{
			Accounts:      repository.NewAccountRepository(t.pg),
			Conversations: repository.NewConversationRepository(t.pg),
			Invitations:   repository.NewInvitationRepository(t.pg),
		}
	} else {
		stores = database.SeedStores{
			Accounts:      repository.NewMongoAccountRepository(t.mongo),
			Conversations: repository.NewMongoConversationRepository(t.mongo),
			Invitations:   repository.NewMongoInvitationRepository(t.mongo),
		}
	}

	result, err := database.SeedDevelopment(ctx, seed, stores, security.NewBcryptHasher(cfg.BcryptCost), nil)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("📊 Seed Summary:")
	log.Printf("   - Admin user: %s", result.AdminEmail)
	log.Printf("   - Test users: %d", len(result.TestEmails))
	log.Printf("   - Conversations: %d", len(result.ConversationIDs))
	log.Printf("   - Messages: %d", result.Messages)
	log.Printf("   - Invitations: %d", result.Invitations)
	log.Println("✅ Development seeding completed!")
}
