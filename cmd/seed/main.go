package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"telegram-vpn-shop/internal/config"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
	pg "telegram-vpn-shop/internal/infra/db/postgres"
	"telegram-vpn-shop/internal/infra/security"
)

// Seeds the schema, default settings keys and a demo host with a few plans so
// a fresh deployment has something to sell.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	var encSvc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		if encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey); err != nil {
			log.Fatalf("encryption: %v", err)
		}
	}
	settings := pg.NewSettingsRepo(pool, encSvc)

	// Settings keys the panel expects to exist. Existing values win.
	defaults := map[string]string{
		"shop_name":           "VPN Shop",
		"panel_password":      "admin",
		"yookassa_shop_id":    "",
		"yookassa_secret_key": "",
		"cryptobot_token":     "",
		"heleket_merchant_id": "",
		"heleket_api_key":     "",
		"ton_wallet_address":  "",
		"tonapi_key":          "",
	}
	for key, value := range defaults {
		current, err := settings.Get(ctx, key)
		if err != nil {
			log.Fatalf("read setting %q: %v", key, err)
		}
		if current != "" {
			continue
		}
		if err := settings.Set(ctx, key, value); err != nil {
			log.Fatalf("seed setting %q: %v", key, err)
		}
		fmt.Printf("seeded setting: %s\n", key)
	}

	hostRepo := pg.NewHostRepo(pool)
	planRepo := pg.NewPlanRepo(pool)

	hosts, err := hostRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list hosts: %v", err)
	}
	if len(hosts) > 0 {
		fmt.Printf("%d hosts already present. No changes.\n", len(hosts))
		return
	}

	demo := &model.Host{
		Name:      "demo",
		URL:       "https://panel.example.com:2053",
		Username:  "admin",
		Password:  "admin",
		InboundID: 1,
	}
	if err := hostRepo.Save(ctx, repository.NoTX, demo); err != nil {
		log.Fatalf("seed host: %v", err)
	}
	fmt.Printf("seeded host: %s\n", demo.Name)

	seed := []struct {
		Name   string
		Months int
		Price  float64
	}{
		{"1 month", 1, 150},
		{"3 months", 3, 400},
		{"12 months", 12, 1400},
	}
	for _, s := range seed {
		p := &model.Plan{HostName: demo.Name, Name: s.Name, Months: s.Months, Price: s.Price}
		id, err := planRepo.Create(ctx, repository.NoTX, p)
		if err != nil {
			log.Fatalf("create plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded plan: %s (id=%d, months=%d, price=%.2f)\n", s.Name, id, s.Months, s.Price)
	}

	fmt.Println("✅ Seeding complete.")
}
