// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
	"github.com/trezcool/studyplan/storage/database"
)

func init() {
	// hashing at the default cost makes tests crawl
	user.PasswordHashCost = bcrypt.MinCost
}

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:          "StudyPlan",
		Env:              "TEST",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@studyplan.test",
		Server: core.ServerConfig{
			Address:                   ":0",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			PasswordResetTimeoutDelta: time.Hour,
			AllowedOrigins:            []string{"http://localhost:3000"},
			RateLimitMax:              100,
			RateLimitWindow:           15 * time.Minute,
		},
		Database: core.DatabaseConfig{InMemory: true},
	}
}

// NewValidator returns a validator with every package's validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	plan.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreatePlan stores a deterministic plan on topic for usr.
func CreatePlan(t *testing.T, repo plan.Repository, usr user.User, topic string, createdAt ...time.Time) plan.StudyPlan {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	req := plan.GenerateRequest{Topic: topic}
	req.Normalize()

	p, err := repo.CreatePlan(context.Background(), plan.New(usr.ID, req, plan.SynthesizeFallback(req), plan.SourceSmartMock, tstamp))
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return p
}

func CreateFeedback(t *testing.T, repo feedback.Repository, usr user.User, p plan.StudyPlan, rating int, helpful bool) feedback.Feedback {
	t.Helper()

	now := time.Now().UTC()
	fb, err := repo.UpsertFeedback(context.Background(), feedback.Feedback{
		UserID:      usr.ID,
		StudyPlanID: p.ID,
		Rating:      rating,
		Feedback:    "Useful plan",
		Helpful:     helpful,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return fb
}

// PrepareDB opens and migrates the postgres test database. Tests are skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := NewConfig()
	conf.Database = core.DatabaseConfig{
		Engine:     "postgres",
		Host:       host,
		Port:       5432,
		Name:       envOr("TEST_DATABASE_NAME", "studyplan_test"),
		User:       envOr("TEST_DATABASE_USER", "postgres"),
		Password:   os.Getenv("TEST_DATABASE_PASSWORD"),
		DisableTLS: true,
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE users, study_plans, feedback CASCADE"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
