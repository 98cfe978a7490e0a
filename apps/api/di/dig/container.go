package dig_container

import (
	"context"
	"io"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/studyplan/apps/api/echo"
	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/analytics"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
	emailsvc "github.com/trezcool/studyplan/services/email"
	logsvc "github.com/trezcool/studyplan/services/logger"
	openaisvc "github.com/trezcool/studyplan/services/openai"
	ratelimitsvc "github.com/trezcool/studyplan/services/ratelimit"
	"github.com/trezcool/studyplan/storage/database"
	inmemdb "github.com/trezcool/studyplan/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studyplan/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured database engine.
type Storage struct {
	dig.Out
	DB           io.Closer `name:"db"`
	UserRepo     user.Repository
	PlanRepo     plan.Repository
	FeedbackRepo feedback.Repository
}

type DBParam struct {
	dig.In
	DB io.Closer `name:"db"`
}

func newLogger(conf *core.Config) (*logsvc.Logger, error) {
	return logsvc.NewLogger("api", conf)
}

func newAppLogger(logger *logsvc.Logger) core.Logger { return logger }

func newDBLogger(conf *core.Config) (core.Logger, error) {
	return logsvc.NewLogger("db", conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		return Storage{
			DB:           db,
			UserRepo:     inmemdb.NewUserRepository(db),
			PlanRepo:     inmemdb.NewPlanRepository(db),
			FeedbackRepo: inmemdb.NewFeedbackRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal("opening database", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		loggerParam.Logger.Fatal("migrating database", err)
	}
	return Storage{
		DB:           db,
		UserRepo:     sqlxrepos.NewUserRepository(db),
		PlanRepo:     sqlxrepos.NewPlanRepository(db),
		FeedbackRepo: sqlxrepos.NewFeedbackRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	plan.InitValidators(validate, translator)
	return validate, translator
}

// newRateLimiter shares counters through redis when configured, otherwise counts per process.
func newRateLimiter(conf *core.Config, logger core.Logger) core.RateLimiter {
	limit, win := conf.Server.RateLimitMax, conf.Server.RateLimitWindow
	if conf.Redis.Addr == "" {
		return ratelimitsvc.NewMemoryLimiter(limit, win)
	}

	rdb, err := ratelimitsvc.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting in memory", err)
		return ratelimitsvc.NewMemoryLimiter(limit, win)
	}
	return ratelimitsvc.NewRedisLimiter(rdb, limit, win)
}

// newGenerator returns nil unless an OpenAI API key is configured.
func newGenerator(conf *core.Config) plan.Generator {
	if !conf.OpenAI.Enabled() {
		return nil
	}
	return openaisvc.NewClient(conf.OpenAI)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newAppLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newRateLimiter))
	must(c.Provide(newGenerator))
	must(c.Provide(plan.NewSynthesizer))
	must(c.Provide(user.NewService))
	must(c.Provide(plan.NewService))
	must(c.Provide(feedback.NewService))
	must(c.Provide(analytics.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
