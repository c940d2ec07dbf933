package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"soundcheck/internal/repositories"
	"soundcheck/internal/services"
)

// provision creates a tenant, its primary domain and the first admin user.
// Run once per customer before pointing their hostname at the service.
func main() {
	name := flag.String("name", "", "Tenant display name")
	slug := flag.String("slug", "", "Tenant slug (lowercase, url-safe)")
	domain := flag.String("domain", "", "Primary hostname, e.g. acme.dashboards.example.com")
	adminEmail := flag.String("admin-email", "", "Initial admin user email")
	adminPassword := flag.String("admin-password", "", "Initial admin user password")
	adminFirstName := flag.String("admin-first-name", "", "Initial admin first name")
	adminLastName := flag.String("admin-last-name", "", "Initial admin last name")
	flag.Parse()

	if *name == "" || *slug == "" || *domain == "" || *adminEmail == "" || *adminPassword == "" {
		flag.Usage()
		os.Exit(2)
	}
	if len(*adminPassword) < 8 {
		log.Fatal("admin password must be at least 8 characters")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tenantSvc := services.NewTenantService(
		repositories.NewTenantRepo(pool),
		repositories.NewDomainRepo(pool),
		repositories.NewUserRepo(pool),
	)

	tenant, err := tenantSvc.Provision(ctx, &services.ProvisionInput{
		Name:           *name,
		Slug:           *slug,
		Domain:         *domain,
		AdminEmail:     *adminEmail,
		AdminPassword:  *adminPassword,
		AdminFirstName: *adminFirstName,
		AdminLastName:  *adminLastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrSlugTaken) {
			log.Fatalf("Slug %q is already taken", *slug)
		}
		log.Fatalf("Provisioning failed: %v", err)
	}

	fmt.Printf("Created tenant %s (%s)\n", tenant.Name, tenant.ID)
	fmt.Printf("Primary domain: %s\n", *domain)
	fmt.Printf("Admin user: %s\n", *adminEmail)
	fmt.Println("Next steps:")
	fmt.Println("  - point the hostname at this service")
	fmt.Println("  - have the admin log in and complete two-factor setup")
}
