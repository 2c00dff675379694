package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boardworks/boardworks/internal/app"
	"github.com/boardworks/boardworks/internal/customers"
	"github.com/boardworks/boardworks/internal/platform/db"
	"github.com/boardworks/boardworks/internal/settings"
)

// demoRegion is a fixed ID so repeated runs update the same rows.
var demoRegion = uuid.MustParse("6f1c2d3e-0000-4000-8000-00000000b001")

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying migrations...")
	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	for _, version := range applied {
		fmt.Println("  applied", version)
	}

	settingsService := settings.NewService(settings.NewRepository(pool), app.NewLogger(cfg))

	fmt.Println("→ Seeding global settings...")
	if err := putAll(ctx, settingsService, uuid.Nil, map[settings.Category]any{
		settings.CategoryTaxRates:     map[string]string{"gst": "0.05", "pst": "0.07"},
		settings.CategoryPaymentTerms: map[string]int{"days": 30},
		settings.CategoryCompanyInfo: map[string]string{
			"name":      "Boardworks Resurfacing",
			"address":   "1 Harbour Rd, Halifax, NS",
			"phone":     "902-555-0100",
			"email":     "billing@boardworks.example",
			"gstNumber": "123456789RT0001",
		},
		settings.CategoryServicePricing: map[string]map[string]string{"prices": {
			"RESURFACING":      "45.00",
			"SANITIZING":       "15.00",
			"EDGE_REPAIR":      "12.50",
			"CONDITIONING":     "10.00",
			"KNIFE_SHARPENING": "8.00",
			"PICKUP_DELIVERY":  "25.00",
		}},
	}); err != nil {
		log.Fatalf("seed global settings: %v", err)
	}

	fmt.Println("→ Seeding demo region", demoRegion)
	if err := putAll(ctx, settingsService, demoRegion, map[settings.Category]any{
		settings.CategoryTaxRates:     map[string]string{"gst": "0.05", "pst": "0.10"},
		settings.CategoryPaymentTerms: map[string]int{"days": 15},
	}); err != nil {
		log.Fatalf("seed demo region: %v", err)
	}

	fmt.Println("→ Seeding customers...")
	if err := seedCustomers(ctx, customers.NewService(customers.NewRepository(pool))); err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func putAll(ctx context.Context, svc *settings.Service, regionID uuid.UUID, docs map[settings.Category]any) error {
	for category, value := range docs {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := svc.Put(ctx, regionID, category, raw); err != nil {
			return fmt.Errorf("%s: %w", category, err)
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, svc *customers.Service) error {
	names := []string{"Harbourfront Bistro", "Maple Street Butcher", "North End Bakery"}
	for _, name := range names {
		existing, _, err := svc.List(ctx, customers.ListCustomersRequest{RegionID: &demoRegion, Search: name, Limit: 1})
		if err != nil {
			return err
		}
		if len(existing) > 0 && strings.EqualFold(existing[0].Name, name) {
			continue
		}
		email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
		if _, err := svc.Create(ctx, customers.CreateCustomerRequest{RegionID: demoRegion, Name: name, Email: &email}); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
