// Command seed loads accounts, statements, and book transactions from a
// YAML fixture file into the database. It is the external import path for
// development and demos; the engine itself never writes these records.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/config"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/logging"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

type fixture struct {
	Accounts []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"accounts"`
	Statements []struct {
		ID             string `yaml:"id"`
		AccountID      string `yaml:"account_id"`
		PeriodStart    string `yaml:"period_start"`
		PeriodEnd      string `yaml:"period_end"`
		OpeningBalance string `yaml:"opening_balance"`
		ClosingBalance string `yaml:"closing_balance"`
		Lines          []struct {
			ID          string `yaml:"id"`
			Date        string `yaml:"date"`
			Amount      string `yaml:"amount"`
			Description string `yaml:"description"`
			Reference   string `yaml:"reference"`
		} `yaml:"lines"`
	} `yaml:"statements"`
	Transactions []struct {
		ID          string `yaml:"id"`
		AccountID   string `yaml:"account_id"`
		Date        string `yaml:"date"`
		Amount      string `yaml:"amount"`
		Description string `yaml:"description"`
		Reference   string `yaml:"reference"`
	} `yaml:"transactions"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fixturePath := flag.String("fixture", "seed.yaml", "path to fixture file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "seed")

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	fx, err := loadFixture(*fixturePath)
	if err != nil {
		logger.Error("failed to load fixture", "error", err, "path", *fixturePath)
		os.Exit(1)
	}

	if err := apply(repo, fx); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete",
		"accounts", len(fx.Accounts),
		"statements", len(fx.Statements),
		"transactions", len(fx.Transactions))
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	return &fx, nil
}

func apply(repo storage.Repository, fx *fixture) error {
	for _, a := range fx.Accounts {
		if err := repo.SaveAccount(&storage.Account{ID: a.ID, Name: a.Name, Type: a.Type}); err != nil {
			return fmt.Errorf("account %s: %w", a.ID, err)
		}
	}

	for _, s := range fx.Statements {
		start, err := parseDate(s.PeriodStart)
		if err != nil {
			return fmt.Errorf("statement %s: %w", s.ID, err)
		}
		end, err := parseDate(s.PeriodEnd)
		if err != nil {
			return fmt.Errorf("statement %s: %w", s.ID, err)
		}
		opening, err := decimal.NewFromString(s.OpeningBalance)
		if err != nil {
			return fmt.Errorf("statement %s opening: %w", s.ID, err)
		}
		closing, err := decimal.NewFromString(s.ClosingBalance)
		if err != nil {
			return fmt.Errorf("statement %s closing: %w", s.ID, err)
		}
		if err := repo.SaveStatement(&storage.BankStatement{
			ID: s.ID, AccountID: s.AccountID,
			PeriodStart: start, PeriodEnd: end,
			OpeningBalance: opening, ClosingBalance: closing,
			Status: storage.StatementCompleted,
		}); err != nil {
			return fmt.Errorf("statement %s: %w", s.ID, err)
		}

		for _, l := range s.Lines {
			date, err := parseDate(l.Date)
			if err != nil {
				return fmt.Errorf("line %s: %w", l.ID, err)
			}
			amount, err := decimal.NewFromString(l.Amount)
			if err != nil {
				return fmt.Errorf("line %s amount: %w", l.ID, err)
			}
			if err := repo.SaveStatementLine(&storage.BankStatementLine{
				ID: l.ID, StatementID: s.ID,
				TransactionDate: date, Amount: amount,
				Description: l.Description, ReferenceNumber: l.Reference,
			}); err != nil {
				return fmt.Errorf("line %s: %w", l.ID, err)
			}
		}
	}

	for _, t := range fx.Transactions {
		date, err := parseDate(t.Date)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if err := repo.SaveTransaction(&storage.BookTransaction{
			ID: t.ID, AccountID: t.AccountID,
			TransactionDate: date, Amount: amount,
			Description: t.Description, ReferenceNumber: t.Reference,
			Status: storage.TransactionCompleted,
		}); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	for _, a := range fx.Accounts {
		if err := repo.RecomputeAccountBalance(a.ID); err != nil {
			return fmt.Errorf("recompute %s: %w", a.ID, err)
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
