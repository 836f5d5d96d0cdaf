// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"haven/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumMembers  int
	NumRequests int
	NumTickets  int
	ShouldClean bool
}

var ticketCategories = []models.TicketCategory{
	models.TicketCategoryResources,
	models.TicketCategoryLegal,
	models.TicketCategoryMedical,
	models.TicketCategoryOther,
}

// Seed populates the database with development data: a fixed staff roster, a
// mesh of members with profiles, a queue of access requests in every state,
// and support tickets with threads.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d members, %d requests, %d tickets...",
		opts.NumMembers, opts.NumRequests, opts.NumTickets)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	staff, err := createStaff(db)
	if err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	log.Printf("✓ %d staff accounts created", len(staff))

	members, err := createMembers(db, opts.NumMembers)
	if err != nil {
		return fmt.Errorf("failed to create members: %w", err)
	}
	log.Printf("✓ %d members created", len(members))

	requests, err := createAccessRequests(db, staff, opts.NumRequests)
	if err != nil {
		return fmt.Errorf("failed to create access requests: %w", err)
	}
	log.Printf("✓ %d access requests created", len(requests))

	tickets, err := createTickets(db, members, staff, opts.NumTickets)
	if err != nil {
		return fmt.Errorf("failed to create tickets: %w", err)
	}
	log.Printf("✓ %d tickets created", len(tickets))

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE ticket_messages, support_tickets, notifications, access_requests, profiles, user_roles, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// createStaff seeds one account per elevated tier with a known password.
func createStaff(db *gorm.DB) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Haven-dev-pass1!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tiers := map[string]models.Role{
		"admin":      models.RoleAdmin,
		"superadmin": models.RoleSuperadmin,
		"god":        models.RoleGod,
	}

	var staff []models.User
	for username, role := range tiers {
		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@haven.local", username),
			Password: string(hashed),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		if err := db.Create(&models.UserRole{UserID: user.ID, Role: role}).Error; err != nil {
			return nil, err
		}
		if err := db.Create(&models.Profile{
			UserID:      user.ID,
			DisplayName: strings.ToUpper(username[:1]) + username[1:],
		}).Error; err != nil {
			return nil, err
		}
		staff = append(staff, user)
	}
	return staff, nil
}

func createMembers(db *gorm.DB, count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Haven-dev-pass1!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			Username: fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i),
			Email:    fmt.Sprintf("member%d.%s", i, gofakeit.Email()),
			Password: string(hashed),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		if err := db.Create(&models.UserRole{UserID: user.ID, Role: models.RoleMember}).Error; err != nil {
			return nil, err
		}
		if err := db.Create(&models.Profile{
			UserID:       user.ID,
			DisplayName:  gofakeit.Name(),
			Pronouns:     gofakeit.RandomString([]string{"she/her", "he/him", "they/them", ""}),
			Location:     gofakeit.City(),
			Bio:          gofakeit.Sentence(12),
			ContactEmail: user.Email,
			ShowEmail:    gofakeit.Bool(),
			ShowLocation: gofakeit.Bool(),
		}).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createAccessRequests seeds a queue with roughly half the requests still
// pending and the rest already decided by a random staff account.
func createAccessRequests(db *gorm.DB, staff []models.User, count int) ([]models.AccessRequest, error) {
	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	requests := make([]models.AccessRequest, 0, count)
	for i := 0; i < count; i++ {
		req := models.AccessRequest{
			FullName: gofakeit.Name(),
			Email:    fmt.Sprintf("applicant%d.%s", i, gofakeit.Email()),
			Message:  gofakeit.Paragraph(1, 3, 12, " "),
			Status:   models.AccessRequestStatusPending,
		}
		if r.Intn(2) == 1 && len(staff) > 0 {
			reviewer := staff[r.Intn(len(staff))]
			reviewedAt := time.Now().UTC().Add(-time.Duration(r.Intn(72)) * time.Hour)
			req.Status = models.AccessRequestStatusApproved
			if r.Intn(3) == 0 {
				req.Status = models.AccessRequestStatusDenied
			}
			req.ReviewedByUserID = &reviewer.ID
			req.ReviewedAt = &reviewedAt
			req.ReviewNote = gofakeit.Sentence(6)
		}
		if err := db.Create(&req).Error; err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func createTickets(db *gorm.DB, members, staff []models.User, count int) ([]models.SupportTicket, error) {
	if len(members) == 0 {
		return nil, nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tickets := make([]models.SupportTicket, 0, count)
	for i := 0; i < count; i++ {
		author := members[r.Intn(len(members))]
		created := time.Now().UTC().Add(-time.Duration(r.Intn(240)) * time.Hour)

		ticket := models.SupportTicket{
			CreatedByUserID: author.ID,
			Category:        ticketCategories[r.Intn(len(ticketCategories))],
			Subject:         gofakeit.Sentence(5),
			Body:            gofakeit.Paragraph(1, 4, 10, " "),
			Status:          models.TicketStatusOpen,
			Visibility:      models.TicketVisibilityAdmin,
			CreatedAt:       created,
			LastUpdated:     created,
		}
		if err := db.Create(&ticket).Error; err != nil {
			return nil, err
		}

		// A short thread: author follow-ups plus the occasional internal
		// staff note.
		for m := 0; m < r.Intn(4); m++ {
			msg := models.TicketMessage{
				TicketID:     ticket.ID,
				AuthorUserID: author.ID,
				Body:         gofakeit.Sentence(10),
				CreatedAt:    created.Add(time.Duration(m+1) * time.Hour),
			}
			if len(staff) > 0 && r.Intn(3) == 0 {
				msg.AuthorUserID = staff[r.Intn(len(staff))].ID
				msg.IsInternal = r.Intn(2) == 0
			}
			if err := db.Create(&msg).Error; err != nil {
				return nil, err
			}
			if msg.CreatedAt.After(ticket.LastUpdated) {
				ticket.LastUpdated = msg.CreatedAt
				if err := db.Model(&ticket).Update("last_updated", msg.CreatedAt).Error; err != nil {
					return nil, err
				}
			}
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}
