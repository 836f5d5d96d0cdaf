// Command main runs the database seeder for Haven.
package main

import (
	"flag"
	"log"

	"haven/internal/config"
	"haven/internal/database"
	"haven/internal/seed"
)

func main() {
	numMembers := flag.Int("members", 50, "Number of members to create")
	numRequests := flag.Int("requests", 30, "Number of access requests to create")
	numTickets := flag.Int("tickets", 40, "Number of support tickets to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d members, %d requests, %d tickets, clean=%v\n",
		*numMembers, *numRequests, *numTickets, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(database.DB, seed.Options{
		NumMembers:  *numMembers,
		NumRequests: *numRequests,
		NumTickets:  *numTickets,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
