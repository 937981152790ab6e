package main

import (
	"context"
	"os"
	"time"

	"gearrent/internal/config"
	"gearrent/internal/database"
	"gearrent/internal/domain"
	"gearrent/internal/events"
	"gearrent/internal/logger"
	"gearrent/internal/modules/auth"
	"gearrent/internal/modules/catalog"
	"gearrent/internal/modules/rental"
	"gearrent/internal/repository"

	"github.com/joho/godotenv"
)

func rate(v float64) *float64 { return &v }

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("config load failed", err)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		fatal("DB connection failed", err)
	}

	logger.Info("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		fatal("AutoMigrate failed", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	logger.Info("Cleaning old data...")
	for _, table := range []string{"rental_transactions", "equipment", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			fatal("cleanup "+table+" failed", err)
		}
	}

	// ================== USERS ==================
	logger.Info("Creating users...")
	users := repository.NewUserRepository(db)
	accounts := []struct {
		email, password, name string
		role                  domain.UserRole
	}{
		{"admin@gearrent.local", "admin123", "Administrator", domain.RoleAdmin},
		{"desk@gearrent.local", "operator123", "Front desk", domain.RoleOperator},
	}
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.password)
		if err != nil {
			fatal("hash password failed", err)
		}
		if err := users.Create(ctx, &domain.User{Email: a.email, PasswordHash: hash, Name: a.name, Role: a.role}); err != nil {
			fatal("create user failed", err)
		}
	}

	// ================== EQUIPMENT ==================
	logger.Info("Creating equipment...")
	catalogService := catalog.NewService(catalog.NewStore(db))
	items := []catalog.CreateEquipmentRequest{
		{Name: "Sony A7 IV", Code: "CAM-001", Category: "camera", DailyRate: rate(45), PurchasePrice: 2500, PurchaseDate: "2023-03-15"},
		{Name: "Canon EOS R6", Code: "CAM-002", Category: "camera", DailyRate: rate(40), PurchasePrice: 2300},
		{Name: "Sigma 24-70mm f/2.8", Code: "LEN-001", Category: "lens", DailyRate: rate(15), PurchasePrice: 1100},
		{Name: "Aputure 300d II", Code: "LGT-001", Category: "lighting", DailyRate: rate(25), PurchasePrice: 800, Condition: "fair"},
		{Name: "Rode NTG3", Code: "AUD-001", Category: "audio", DailyRate: rate(12), PurchasePrice: 700},
		{Name: "Manfrotto tripod", Code: "OTH-001", Category: "other", DailyRate: rate(5), PurchasePrice: 200, Condition: "poor"},
	}
	var equipment []*domain.Equipment
	for _, req := range items {
		e, err := catalogService.Create(ctx, req)
		if err != nil {
			fatal("create equipment "+req.Code+" failed", err)
		}
		equipment = append(equipment, e)
	}
	if _, err := catalogService.SetMaintenance(ctx, equipment[len(equipment)-1].ID); err != nil {
		fatal("set maintenance failed", err)
	}

	// ================== RENTALS ==================
	logger.Info("Creating rentals...")
	rentals := rental.NewService(rental.NewStore(db), events.Nop{}, rental.Options{NamePrefix: cfg.RentalNamePrefix})
	today := time.Now().UTC()
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format(rental.DateLayout) }

	demo := []struct {
		req     rental.CreateRentalRequest
		actions []func(context.Context, int64) (*domain.Rental, error)
	}{
		{
			req:     rental.CreateRentalRequest{CustomerName: "Aigerim S.", CustomerEmail: "aigerim@example.com", EquipmentID: equipment[0].ID, RentalDate: day(-10), ReturnDate: day(-7), PaymentStatus: "paid"},
			actions: []func(context.Context, int64) (*domain.Rental, error){rentals.Confirm, rentals.Start, rentals.Return},
		},
		{
			req:     rental.CreateRentalRequest{CustomerName: "Daniyar K.", CustomerPhone: "+7 700 000 0000", EquipmentID: equipment[1].ID, RentalDate: day(-1), ReturnDate: day(2), Deposit: 200, PaymentStatus: "partial"},
			actions: []func(context.Context, int64) (*domain.Rental, error){rentals.Confirm, rentals.Start},
		},
		{
			req:     rental.CreateRentalRequest{CustomerName: "Studio North", EquipmentID: equipment[2].ID, RentalDate: day(3), ReturnDate: day(5)},
			actions: []func(context.Context, int64) (*domain.Rental, error){rentals.Confirm},
		},
		{
			req:     rental.CreateRentalRequest{CustomerName: "Marat T.", EquipmentID: equipment[3].ID, RentalDate: day(1), ReturnDate: day(1)},
			actions: []func(context.Context, int64) (*domain.Rental, error){rentals.Cancel},
		},
		{
			req: rental.CreateRentalRequest{CustomerName: "Walk-in", EquipmentID: equipment[4].ID, ReturnDate: day(2), Notes: "Pending ID check"},
		},
	}
	for _, d := range demo {
		r, err := rentals.Create(ctx, d.req)
		if err != nil {
			fatal("create rental failed", err)
		}
		for _, act := range d.actions {
			if r, err = act(ctx, r.ID); err != nil {
				fatal("rental action failed", err)
			}
		}
		logger.Info("rental seeded", "name", r.Name, "state", r.State, "total", r.TotalAmount)
	}

	logger.Info("Seed completed!")
	logger.Info("Test accounts: admin@gearrent.local / admin123, desk@gearrent.local / operator123")
}
