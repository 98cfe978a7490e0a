package logsvc

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rbErrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/user"
)

// Logger writes structured logs with zap and reports warnings and errors to Rollbar.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(name string, conf *core.Config) (*Logger, error) {
	var cfg zap.Config
	if conf.Env == "PROD" || conf.Env == "QA" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if conf.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}

	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rbErrors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)

	return newLogger(zl.Named(name)), nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return newLogger(zap.NewNop())
}

func newLogger(zl *zap.Logger) *Logger {
	return &Logger{sugar: zl.Sugar()}
}

func (l *Logger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes buffered logs and waits for pending Rollbar items.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
	rollbar.Wait()
}

// fields converts args to zap key/values.
// expected args: error, map[string]interface{}, user.User
func (l *Logger) fields(args []interface{}) []interface{} {
	kvs := make([]interface{}, 0, 2*len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			kvs = append(kvs, zap.Error(v))
		case map[string]interface{}:
			for k, val := range v {
				kvs = append(kvs, k, val)
			}
		case user.User:
			kvs = append(kvs, "userId", v.ID, "userEmail", v.Email)
		default:
			kvs = append(kvs, fmt.Sprintf("arg%d", i), v)
		}
	}
	return kvs
}

// report forwards a message to Rollbar with the first user.User arg as person.
func (l *Logger) report(level string, msg string, args []interface{}) {
	var usrSet bool
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			if !usrSet {
				rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
				usrSet = true
			}
			continue
		}
		items = append(items, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, items...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, l.fields(args)...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, l.fields(args)...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.sugar.Warnw(msg, l.fields(args)...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.sugar.Errorw(msg, l.fields(args)...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.sugar.Fatalw(msg, l.fields(args)...)
}
