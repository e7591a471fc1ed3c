// Seeder for local Kestrel development.
//
// Usage:
//   go run cmd/seed/main.go -db ./kestrel.db -intermediary 06789 -customers 200
//
// This tool:
//   1. Generates synthetic customers with demographic attributes
//   2. Generates transactions, subject links, and historical alert events
//   3. Writes everything through the repository layer
//
// The generated population spans the compiled-in categorization tables so a
// scoring cycle over it exercises every feature family.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

var (
	provinces  = []string{"MI", "RM", "NA", "RC", "BZ", "VE", "IM", "TO", "FI"}
	legalForms = []string{"PF", "DI", "SRL", "SPA", "SNC"}
	sectors    = []string{"430", "600", "258", "614", "492", "999"}
	activities = []string{"9201", "6611", "4110", "4711", "5610", "0000"}
	causals    = []string{"01", "03", "26", "90", "50", "18", "31", "06", "60", "70", "99"}
	countries  = []string{"IT", "IT", "IT", "IT", "DE", "FR", "CH", "AE", "PA", "IR"}
	systems    = []string{"KESTREL", "LEGACY_TM", "BRANCH_REPORTS"}
)

func main() {
	dbPath := flag.String("db", "./kestrel.db", "SQLite database path")
	intermediary := flag.String("intermediary", "06789", "intermediary code")
	customers := flag.Int("customers", 200, "number of customers to generate")
	months := flag.Int("months", 18, "months of transaction history")
	txPerMonth := flag.Int("tx-per-month", 8, "average transactions per customer per month")
	alertRate := flag.Float64("alert-rate", 0.1, "fraction of customers with alert history")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	fmt.Printf("Seeding %s (intermediary %s)\n", *dbPath, *intermediary)
	fmt.Printf("  customers:    %d\n", *customers)
	fmt.Printf("  months:       %d\n", *months)
	fmt.Printf("  tx/month:     %d\n", *txPerMonth)
	fmt.Printf("  alert rate:   %.2f\n", *alertRate)
	fmt.Println()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: *dbPath,
	})
	if err != nil {
		fmt.Printf("ERROR: failed to open repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	now := time.Now().UTC()

	var txCount, linkCount, eventCount int

	for i := 0; i < *customers; i++ {
		id, err := domain.NormalizeCustomerID(fmt.Sprintf("%d", 100000+i))
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}

		cust := &domain.Customer{
			ID:               id,
			IntermediaryCode: *intermediary,
			BirthDate:        randomBirthDate(rng),
			LegalForm:        pick(rng, legalForms),
			Province:         pick(rng, provinces),
			SectorCode:       pick(rng, sectors),
			ActivityCode:     pick(rng, activities),
			GrossIncome:      float64(rng.Intn(200_000)),
			ChecksRequested:  rng.Intn(20),
			ChecksDebited:    rng.Intn(15),
			ChecksAvailable:  rng.Intn(10),
			RiskProfile:      rng.Intn(5) + 1,
		}
		if err := repo.SaveCustomer(ctx, cust); err != nil {
			fmt.Printf("ERROR: failed to save customer %s: %v\n", id, err)
			os.Exit(1)
		}

		// Transaction history across the requested months.
		for m := 0; m < *months; m++ {
			n := rng.Intn(*txPerMonth*2 + 1)
			for j := 0; j < n; j++ {
				opCode := fmt.Sprintf("OP%08d", txCount)
				date := now.AddDate(0, -m, -rng.Intn(28))
				dir := domain.DirectionIn
				if rng.Intn(2) == 0 {
					dir = domain.DirectionOut
				}

				tx := &domain.Transaction{
					OperationCode:      opCode,
					IntermediaryCode:   *intermediary,
					Direction:          dir,
					Amount:             50 + rng.Float64()*20_000,
					Date:               date,
					CausalCode:         pick(rng, causals),
					CounterpartCountry: pick(rng, countries),
				}
				if err := repo.SaveTransaction(ctx, tx); err != nil {
					fmt.Printf("ERROR: failed to save transaction: %v\n", err)
					os.Exit(1)
				}
				txCount++

				link := &domain.SubjectLink{
					OperationCode:    opCode,
					CustomerID:       id,
					IntermediaryCode: *intermediary,
					Role:             domain.RolePrimary,
				}
				if rng.Float64() < 0.1 {
					link.Role = domain.RoleSecondary
				}
				if err := repo.SaveSubjectLink(ctx, link); err != nil {
					fmt.Printf("ERROR: failed to save subject link: %v\n", err)
					os.Exit(1)
				}
				linkCount++
			}
		}

		// Alert history for a fraction of the population.
		if rng.Float64() < *alertRate {
			status := domain.StatusToAlert
			if rng.Intn(3) == 0 {
				status = domain.StatusNotToAlert
			}
			ev := &domain.AlertEvent{
				CustomerID:       id,
				IntermediaryCode: *intermediary,
				Date:             now.AddDate(0, -rng.Intn(*months), 0),
				Status:           status,
				System:           pick(rng, systems),
			}
			if err := repo.SaveAlertEvent(ctx, ev); err != nil {
				fmt.Printf("ERROR: failed to save alert event: %v\n", err)
				os.Exit(1)
			}
			eventCount++
		}
	}

	fmt.Println("Done.")
	fmt.Printf("  customers:     %d\n", *customers)
	fmt.Printf("  transactions:  %d\n", txCount)
	fmt.Printf("  subject links: %d\n", linkCount)
	fmt.Printf("  alert events:  %d\n", eventCount)
	fmt.Println()
	fmt.Println("Run a cycle with:")
	fmt.Printf("  go run cmd/kestrel/main.go -ref-month %02d%d -intermediary %s -model-url http://localhost:9000\n",
		int(now.Month()), now.Year(), *intermediary)
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

func randomBirthDate(rng *rand.Rand) string {
	year := 1940 + rng.Intn(65)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
