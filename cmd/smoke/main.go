package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/checkout"
	"github.com/angelmondragon/bakery-backend/internal/storefront"
	"github.com/angelmondragon/bakery-backend/pkg/env"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// smoke walks one purchase through a running API: login, browse, cart,
// pickup details, sandbox card charge and order submission.
func main() {
	_ = godotenv.Load()

	baseURL := flag.String("base-url", env.Get("API_URL", "http://localhost:8080"), "bakery API base url")
	email := flag.String("email", env.Get("SEED_ADMIN_EMAIL", ""), "account email")
	password := flag.String("password", env.Get("SEED_ADMIN_PASSWORD", ""), "account password")
	nonce := flag.String("nonce", "cnon:card-nonce-ok", "sandbox card nonce")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "smoke"})
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logg.WithField(ctx, "base_url", *baseURL)

	if err := run(ctx, logg, *baseURL, *email, *password, *nonce); err != nil {
		logg.Error(ctx, "smoke checkout failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, baseURL, email, password, nonce string) error {
	client, err := storefront.NewClient(baseURL, storefront.WithLogger(logg))
	if err != nil {
		return err
	}
	if _, err := client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	products, err := client.Products(ctx, "")
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	session := client.StartSession(storefront.SessionOptions{Logger: logg})
	defer session.End()

	added := 0
	for _, p := range products {
		if !p.Available {
			continue
		}
		session.Cart().AddItem(cart.Product{ID: p.ID, Name: p.Name, Price: p.Price}, 1)
		added++
		if added == 2 {
			break
		}
	}
	if added == 0 {
		return fmt.Errorf("no available products to buy")
	}

	wf, err := session.Checkout()
	if err != nil {
		return err
	}
	pickup := time.Now().Add(48 * time.Hour)
	if err := wf.ProceedToPayment(checkout.Details{
		PickupDate:          pickup.Format("2006-01-02"),
		PickupTime:          "10:00",
		SpecialInstructions: "smoke test",
	}); err != nil {
		return fmt.Errorf("pickup details: %w", err)
	}

	state, err := wf.Pay(ctx, nonce)
	if err != nil {
		return fmt.Errorf("pay: %w", err)
	}
	completed, ok := state.(checkout.Completed)
	if !ok {
		return fmt.Errorf("checkout ended in state %s", state.Name())
	}
	fmt.Printf("order %s placed, payment %s, total %s\n", completed.Order.ID, completed.PaymentID, completed.Order.TotalAmount.StringFixed(2))
	return nil
}
